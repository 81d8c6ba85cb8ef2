package bootstrap

import (
	"capcall/internal/config"
	"capcall/internal/ports"
	"capcall/internal/providers/rtvi"
	"capcall/internal/store/postgrest"
	"capcall/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.CallController
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	store, err := postgrest.NewStore(postgrest.Config{
		BaseURL: cfg.Store.BaseURL,
		APIKey:  cfg.Store.APIKey,
		Timeout: cfg.Store.Timeout,
	})
	if err != nil {
		return Services{}, err
	}

	controller := usecase.NewCallController(
		rtvi.NewDialer(rtvi.Config{
			Endpoint:    cfg.Call.Endpoint,
			EventBuffer: cfg.Session.EventBuffer,
		}),
		store,
		eventSink,
		usecase.Config{
			Credential:        cfg.Call.APIKey,
			PreferredLanguage: cfg.Call.Language,
			CallerID:          cfg.Caller.ProfileID,
			CallerName:        cfg.Caller.DisplayName,
		},
	)

	return Services{Controller: controller, Config: cfg}, nil
}
