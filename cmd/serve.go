package cmd

import (
	"context"

	"github.com/lepinkainen/bookfinder/internal/catalog"
	"github.com/lepinkainen/bookfinder/internal/httpapi"
	"github.com/lepinkainen/bookfinder/internal/search"
	"github.com/spf13/viper"
)

var serveAPI = func(ctx context.Context, srv *httpapi.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr)
}

// ServeCmd represents the serve command
type ServeCmd struct {
	Addr      string `help:"Listen address (defaults to server.addr)"`
	RateLimit int    `help:"API requests per minute per client IP, 0 disables (defaults to server.rate_limit)" default:"-1"`
}

func (s *ServeCmd) Run() error {
	addr := s.Addr
	if addr == "" {
		addr = viper.GetString("server.addr")
	}
	rateLimit := s.RateLimit
	if rateLimit < 0 {
		rateLimit = viper.GetInt("server.rate_limit")
	}

	return withLibrary(func(lib *catalog.Library) error {
		ctx, stop := signalContext()
		defer stop()

		srv := httpapi.NewServer(search.NewFromConfig(lib.Store), lib, httpapi.WithRateLimit(rateLimit))
		return serveAPI(ctx, srv, addr)
	})
}
