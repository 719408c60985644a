package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/example/dataservice-read/internal/adapter/cache"
	"github.com/example/dataservice-read/internal/adapter/transport"
	"github.com/example/dataservice-read/internal/cancellation"
	"github.com/example/dataservice-read/internal/client"
	"github.com/example/dataservice-read/internal/domain"
	"github.com/example/dataservice-read/internal/logging"
	"github.com/example/dataservice-read/internal/usecase"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newCommand(os.Stdout).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "dsread: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "dsread",
		Usage: "read partition metadata from a data catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "debug, info, warn or error"},
		},
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "resolve one partition by id and version",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "catalog", Required: true, Usage: "catalog HRN"},
					&cli.StringFlag{Name: "layer", Required: true},
					&cli.StringFlag{Name: "partition", Required: true},
					&cli.IntFlag{Name: "version", Required: true},
					&cli.DurationFlag{Name: "timeout", Value: client.DefaultRequestTimeout, Usage: "timeout of each network request"},
					&cli.StringFlag{Name: "lookup-url", Value: client.DefaultLookupURL},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					logger, err := logging.New(os.Stderr, cmd.String("log-level"), "text")
					if err != nil {
						return err
					}
					tr := transport.NewHTTPTransport(&http.Client{}, "dsread-cli")
					defer tr.Close()
					settings := client.Settings{
						Cache:          cache.NewMemoryCache(),
						Transport:      tr,
						RequestTimeout: cmd.Duration("timeout"),
						LookupURL:      cmd.String("lookup-url"),
					}
					req := domain.PartitionRequest{}.
						WithPartitionID(cmd.String("partition")).
						WithVersion(int64(cmd.Int("version"))).
						WithFetchOption(domain.OnlineOnly)
					return getPartition(slogcontext.NewCtx(ctx, logger), settings, cmd.String("catalog"), cmd.String("layer"), req, stdout)
				},
			},
		},
	}
}

func getPartition(ctx context.Context, settings client.Settings, catalog, layer string, req domain.PartitionRequest, out io.Writer) error {
	uc, err := usecase.NewGetPartitionByID(settings)
	if err != nil {
		return err
	}
	cc, stop := cancellation.FromContext(ctx)
	defer stop()

	res, err := uc.Execute(cc, catalog, layer, req)
	if err != nil {
		return err
	}
	slogcontext.FromCtx(ctx).Debug("partition resolved", slog.Int("count", len(res.Partitions)))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
