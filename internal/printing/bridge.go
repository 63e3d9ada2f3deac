package printing

import (
	"context"
	"encoding/json"
	"fmt"
)

// Device identifies the printer paired with the mobile host app.
type Device struct {
	MacAddress string `json:"deviceMacAddress"`
	Name       string `json:"deviceName"`
}

func (d Device) Valid() bool { return d.MacAddress != "" }

// Bridge is the message channel into the mobile host app. Implementations
// return nil once the host has accepted the message.
type Bridge interface {
	PostMessage(ctx context.Context, message string) error
}

// BridgeEvent is the JSON message the host app understands.
type BridgeEvent struct {
	Event            string `json:"event"`
	DeviceMacAddress string `json:"deviceMacAddress"`
	DeviceName       string `json:"deviceName"`
	ImageBase64      string `json:"imageBase64"`
}

// BridgeTarget posts the raster as base64 PNG to a paired device.
type BridgeTarget struct {
	Bridge Bridge
	Device Device
}

func (t *BridgeTarget) Kind() TargetKind { return TargetBridge }

func (t *BridgeTarget) Deliver(ctx context.Context, p Payload) (Result, error) {
	b64, err := EncodeBase64(p.Image)
	if err != nil {
		return Result{}, err
	}
	msg, err := json.Marshal(BridgeEvent{
		Event:            "print",
		DeviceMacAddress: t.Device.MacAddress,
		DeviceName:       t.Device.Name,
		ImageBase64:      b64,
	})
	if err != nil {
		return Result{}, fmt.Errorf("bridge: marshal: %w", err)
	}
	if err := t.Bridge.PostMessage(ctx, string(msg)); err != nil {
		return Result{}, err
	}
	return Result{Target: TargetBridge, Bytes: len(msg)}, nil
}
