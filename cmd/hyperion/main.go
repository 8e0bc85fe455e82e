package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/simulator"
	"fenrir/internal/telemetry"
	"fenrir/internal/transport"
)

const (
	symbol       = "BTCUSDT"
	basePrice    = 92000.00
	targetOPS    = 1000000
	listenAddr   = "0.0.0.0"
	listenPort   = 9001
	callbackRate = 1000
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	log.Info().Str("symbol", symbol).Msg("hyperion engine starting")

	ob := book.New()

	gen := simulator.New(ob, basePrice)
	gen.SetPriceCallback(func(price float64, count uint64) {
		log.Debug().Float64("price", price).Uint64("orders", count).Msg("price tick")
	}, callbackRate)

	srv := transport.New(listenAddr, listenPort)

	pub := telemetry.New(srv, ob, gen.Stats(), symbol)

	gen.Start(targetOPS)
	if !srv.Start(ctx) {
		log.Fatal().Msg("hyperion: unable to start transport server")
	}
	pub.Start()

	log.Info().Int("port", listenPort).Msg("hyperion engine online")

	<-ctx.Done()

	log.Info().Msg("hyperion engine shutting down")
	if err := pub.Stop(); err != nil {
		log.Error().Err(err).Msg("telemetry publisher shutdown error")
	}
	if err := gen.Stop(); err != nil {
		log.Error().Err(err).Msg("simulator shutdown error")
	}
	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("transport server shutdown error")
	}
}
