package dto

import "github.com/shopspring/decimal"

// UpdateSettingsRequest replaces the restaurant settings. Empty optional
// strings clear the field.
type UpdateSettingsRequest struct {
	Name             string          `json:"name"             validate:"required,min=1,max=120"`
	Address          string          `json:"address"          validate:"max=250"`
	Phone            string          `json:"phone"            validate:"max=30"`
	GSTIN            string          `json:"gstin"            validate:"omitempty,len=15"`
	Footer           string          `json:"footer"           validate:"max=120"`
	PrinterWidth     string          `json:"printerWidth"     validate:"omitempty,oneof=2-inch 3-inch"`
	PrinterMode      string          `json:"printerMode"      validate:"omitempty,oneof=raster text"`
	BridgeDeviceMac  string          `json:"bridgeDeviceMac"  validate:"omitempty,mac"`
	BridgeDeviceName string          `json:"bridgeDeviceName" validate:"max=100"`
	CGSTRate         decimal.Decimal `json:"cgstRate"         validate:"gte=0,lte=50"`
	SGSTRate         decimal.Decimal `json:"sgstRate"         validate:"gte=0,lte=50"`
}

type SettingsResponse struct {
	Name             string          `json:"name"`
	Address          string          `json:"address"`
	Phone            string          `json:"phone"`
	GSTIN            string          `json:"gstin"`
	Footer           string          `json:"footer"`
	PrinterWidth     string          `json:"printerWidth"`
	PrinterMode      string          `json:"printerMode"`
	BridgeDeviceMac  string          `json:"bridgeDeviceMac"`
	BridgeDeviceName string          `json:"bridgeDeviceName"`
	CGSTRate         decimal.Decimal `json:"cgstRate"`
	SGSTRate         decimal.Decimal `json:"sgstRate"`
	Cached           bool            `json:"cached,omitempty"`
}
