// Lineup
//
// Every round each player is dealt a secret number from 1 to 100 and the
// room is shown a theme describing what 1 and 100 mean. Players give clues
// in the theme's terms, then drag the shared list of players into what they
// believe is ascending order. The host confirms the order and every number
// is revealed.
//
// Routes:
//   - $prefix/ws                → websocket carrying the JSON protocol in package game
//   - $prefix/rooms/:code/qr    → PNG QR code pointing at the room's join link

package main

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Seednode/lineup/game"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"
)

const qrSize = 320

// joinURL builds the link a QR code points at, honouring TLS and proxies.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": []string{code}}.Encode(),
	}

	return u.String()
}

func qrHandler(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, err := registry.Lookup(ps.ByName("code"))
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, room.Code()), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, _ = w.Write(png)
	}
}

// registerLineupGame wires the room registry and session gateway into mux,
// starting the idle reaper for the lifetime of ctx.
func registerLineupGame(ctx context.Context, cfg *Config, logger zerolog.Logger, mux *httprouter.Router) *game.Registry {
	registry := game.NewRegistry(
		game.WithCodeLength(cfg.codeLength),
		game.WithMaxPlayers(cfg.maxPlayers),
		game.WithIdleTimeout(cfg.sessionTimeout),
		game.WithLogger(logger.With().Str("component", "registry").Logger()),
	)

	go registry.Run(ctx)

	gwConfig := game.DefaultGatewayConfig()
	gwConfig.RateLimit = rate.Limit(cfg.rateLimit)
	gwConfig.RateBurst = cfg.rateBurst
	gwConfig.MaxMessageSize = cfg.maxMessageSize

	gateway := game.NewGateway(registry, gwConfig, logger.With().Str("component", "gateway").Logger())

	mux.Handler("GET", cfg.prefix+"/ws", gateway)
	mux.GET(cfg.prefix+"/rooms/:code/qr", qrHandler(cfg, registry))

	return registry
}
