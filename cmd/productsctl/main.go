// Command productsctl sends one request to the products service over the
// configured broker and prints the reply.
//
//	productsctl findOneProduct '{"id": 1}'
//	productsctl validateProductsExists '[1, 2, 3]'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/config"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/errrpc"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/events"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/logger"
	"github.com/Ecommerce-Nest-Microservicios/products-ms/pkg/rpc"
)

func main() {
	emit := flag.Bool("emit", false, "publish as an event and do not wait for a reply")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: productsctl [-emit] <pattern> [json-payload]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 || flag.NArg() > 2 {
		flag.Usage()
		os.Exit(2)
	}
	pattern := flag.Arg(0)
	payload := json.RawMessage("null")
	if flag.NArg() == 2 {
		payload = json.RawMessage(flag.Arg(1))
		if !json.Valid(payload) {
			fmt.Fprintln(os.Stderr, "payload is not valid JSON")
			os.Exit(2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Broker == config.DriverMemory {
		slog.Error("BROKER=memory cannot reach a running service")
		os.Exit(1)
	}

	log := logger.New(cfg)
	ctx := context.Background()

	bus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close() //nolint:errcheck

	client, err := rpc.NewClient(ctx, bus, log, cfg.RPCRequestTimeout)
	if err != nil {
		log.Error("failed to create rpc client", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	if *emit {
		if err := client.Emit(ctx, pattern, payload); err != nil {
			log.Error("emit failed", "pattern", pattern, "error", err)
			os.Exit(1)
		}
		return
	}

	var out json.RawMessage
	err = client.Send(ctx, pattern, payload, &out)
	var rpcErr *errrpc.Error
	switch {
	case errors.As(err, &rpcErr):
		printJSON(rpcErr)
		os.Exit(1)
	case err != nil:
		log.Error("request failed", "pattern", pattern, "error", err)
		os.Exit(1)
	}
	printJSON(out)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
