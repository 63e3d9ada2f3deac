package service

import (
	"context"

	"tablepos/internal/dto"
	"tablepos/internal/model"
	"tablepos/internal/printing"
	"tablepos/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type SettingsService interface {
	Get(ctx context.Context, sess Session) (*dto.SettingsResponse, error)
	Update(ctx context.Context, sess Session, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
	// Load returns the stored row, falling back to the mirror and then to
	// defaults so printing keeps working on first run.
	Load(ctx context.Context, sess Session) model.Settings
}

type settingsService struct {
	repo  repository.SettingsRepository
	cache Cache
}

func NewSettingsService(repo repository.SettingsRepository, cache Cache) SettingsService {
	return &settingsService{repo: repo, cache: orNoCache(cache)}
}

// DefaultSettings is used before the restaurant saves its own.
func DefaultSettings(sess Session) model.Settings {
	return model.Settings{
		RestaurantID: sess.RestaurantID,
		Name:         "Restaurant",
		PrinterWidth: printing.DefaultWidth,
		PrinterMode:  "raster",
		CGSTRate:     decimal.Zero,
		SGSTRate:     decimal.Zero,
	}
}

func mapSettings(s model.Settings, cached bool) *dto.SettingsResponse {
	return &dto.SettingsResponse{
		Name:             s.Name,
		Address:          s.Address,
		Phone:            s.Phone,
		GSTIN:            s.GSTIN,
		Footer:           s.Footer,
		PrinterWidth:     s.PrinterWidth,
		PrinterMode:      s.PrinterMode,
		BridgeDeviceMac:  s.BridgeDeviceMac,
		BridgeDeviceName: s.BridgeDeviceName,
		CGSTRate:         s.CGSTRate,
		SGSTRate:         s.SGSTRate,
		Cached:           cached,
	}
}

// read returns the settings and whether they came from the mirror.
func (s *settingsService) read(ctx context.Context, sess Session) (model.Settings, bool, error) {
	key := mirrorKey(sess, cacheSettings)
	row, err := s.repo.Get(ctx, sess.RestaurantID)
	switch {
	case err == nil:
		if cerr := s.cache.SetJSON(ctx, key, row); cerr != nil {
			log.Warn().Err(cerr).Msg("settings: mirror refresh failed")
		}
		return *row, false, nil
	case isNotFound(err):
		return DefaultSettings(sess), false, nil
	}

	var cached model.Settings
	if ok, cerr := s.cache.GetJSON(ctx, key, &cached); cerr == nil && ok {
		log.Warn().Err(err).Str("restaurant_id", sess.RestaurantID.String()).Msg("settings: serving cached mirror")
		return cached, true, nil
	}
	return model.Settings{}, false, err
}

func (s *settingsService) Get(ctx context.Context, sess Session) (*dto.SettingsResponse, error) {
	row, cached, err := s.read(ctx, sess)
	if err != nil {
		return nil, err
	}
	return mapSettings(row, cached), nil
}

func (s *settingsService) Load(ctx context.Context, sess Session) model.Settings {
	row, _, err := s.read(ctx, sess)
	if err != nil {
		log.Warn().Err(err).Msg("settings: using defaults")
		return DefaultSettings(sess)
	}
	return row
}

func (s *settingsService) Update(ctx context.Context, sess Session, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	row := model.Settings{
		RestaurantID:     sess.RestaurantID,
		Name:             req.Name,
		Address:          req.Address,
		Phone:            req.Phone,
		GSTIN:            req.GSTIN,
		Footer:           req.Footer,
		PrinterWidth:     req.PrinterWidth,
		PrinterMode:      req.PrinterMode,
		BridgeDeviceMac:  req.BridgeDeviceMac,
		BridgeDeviceName: req.BridgeDeviceName,
		CGSTRate:         req.CGSTRate,
		SGSTRate:         req.SGSTRate,
	}
	if row.PrinterWidth == "" {
		row.PrinterWidth = printing.DefaultWidth
	}
	if row.PrinterMode == "" {
		row.PrinterMode = "raster"
	}
	if err := s.repo.Upsert(ctx, &row); err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, mirrorKey(sess, cacheSettings), row); err != nil {
		log.Warn().Err(err).Msg("settings: mirror refresh failed")
	}
	return mapSettings(row, false), nil
}

// receiptHeader maps settings onto the printed header block.
func receiptHeader(st model.Settings) printing.Header {
	return printing.Header{
		Name:    st.Name,
		Address: st.Address,
		Phone:   st.Phone,
		GSTIN:   st.GSTIN,
		Footer:  st.Footer,
	}
}

// bridgeDevice is the paired printer when the session can reach the bridge.
func bridgeDevice(sess Session, st model.Settings) printing.Device {
	if !sess.Bridge {
		return printing.Device{}
	}
	return printing.Device{MacAddress: st.BridgeDeviceMac, Name: st.BridgeDeviceName}
}
