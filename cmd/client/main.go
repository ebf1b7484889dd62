package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pyropy/chunkfs/core/client"
	"github.com/pyropy/chunkfs/lib/logger"
	"github.com/urfave/cli/v2"
)

var log, _ = logger.New("client-cli")

func main() {
	app := &cli.App{
		Name:  "chunkfs",
		Usage: "store, read and remove files on a chunkfs cluster",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "master",
				Value:   "localhost:4531",
				Usage:   "master rpc address",
				EnvVars: []string{"MASTER_ADDR"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   5 * time.Second,
				Usage:   "per-call timeout",
				EnvVars: []string{"CALL_TIMEOUT"},
			},
		},
		Commands: []*cli.Command{
			createCmd,
			readCmd,
			appendCmd,
			deleteCmd,
			listCmd,
			nodesCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorw("client", "ERROR", err)
		os.Exit(1)
	}
}

func newClient(cctx *cli.Context) (*client.Client, error) {
	cfg, err := client.GetConfig()
	if err != nil {
		return nil, err
	}

	cfg.Master.Addr = cctx.String("master")
	cfg.Call.Timeout = cctx.Duration("timeout")

	return client.NewClient(cctx.Context, cfg)
}

func args(cctx *cli.Context, n int) ([]string, error) {
	if cctx.NArg() != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, cctx.NArg())
	}

	return cctx.Args().Slice(), nil
}

func printReport(op string, report *client.WriteReport) {
	fmt.Printf("%s %s: %d chunks\n", op, report.File, len(report.Chunks))
	if under := report.UnderReplicated(); len(under) > 0 {
		fmt.Printf("warning: %d chunks under-replicated\n", len(under))
	}
	if lost := report.Lost(); len(lost) > 0 {
		fmt.Printf("warning: %d chunks reached no replica\n", len(lost))
	}
}

var createCmd = &cli.Command{
	Name:      "create",
	Usage:     "Create a new file",
	ArgsUsage: "NAME DATA",
	Action: func(cctx *cli.Context) error {
		a, err := args(cctx, 2)
		if err != nil {
			return err
		}

		c, err := newClient(cctx)
		if err != nil {
			return err
		}

		report, err := c.Create(cctx.Context, a[0], []byte(a[1]))
		if err != nil {
			return err
		}

		printReport("created", report)
		return nil
	},
}

var appendCmd = &cli.Command{
	Name:      "append",
	Usage:     "Append data to an existing file",
	ArgsUsage: "NAME DATA",
	Action: func(cctx *cli.Context) error {
		a, err := args(cctx, 2)
		if err != nil {
			return err
		}

		c, err := newClient(cctx)
		if err != nil {
			return err
		}

		report, err := c.Append(cctx.Context, a[0], []byte(a[1]))
		if err != nil {
			return err
		}

		printReport("appended", report)
		return nil
	},
}

var readCmd = &cli.Command{
	Name:      "read",
	Usage:     "Print a file's content",
	ArgsUsage: "NAME",
	Action: func(cctx *cli.Context) error {
		a, err := args(cctx, 1)
		if err != nil {
			return err
		}

		c, err := newClient(cctx)
		if err != nil {
			return err
		}

		data, err := c.Read(cctx.Context, a[0])

		var partial *client.PartialReadError
		if err != nil && !errors.As(err, &partial) {
			return err
		}

		fmt.Println(string(data))
		return err
	},
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "Delete a file",
	ArgsUsage: "NAME",
	Action: func(cctx *cli.Context) error {
		a, err := args(cctx, 1)
		if err != nil {
			return err
		}

		c, err := newClient(cctx)
		if err != nil {
			return err
		}

		report, err := c.Delete(cctx.Context, a[0])
		if err != nil {
			return err
		}

		fmt.Printf("deleted %s: %d chunks\n", report.File, len(report.Chunks))
		if !report.Complete() {
			fmt.Printf("warning: %d replicas could not be cleared\n", len(report.Failures))
		}
		return nil
	},
}

var listCmd = &cli.Command{
	Name:      "list",
	Usage:     "List files, optionally only those starting with PREFIX",
	ArgsUsage: "[PREFIX]",
	Action: func(cctx *cli.Context) error {
		c, err := newClient(cctx)
		if err != nil {
			return err
		}

		files, err := c.List(cctx.Context, cctx.Args().First())
		if err != nil {
			return err
		}

		for _, file := range files {
			fmt.Println(file)
		}

		return nil
	},
}

var nodesCmd = &cli.Command{
	Name:  "nodes",
	Usage: "Show the master's view of node liveness",
	Action: func(cctx *cli.Context) error {
		c, err := newClient(cctx)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cctx.Context, cctx.Duration("timeout"))
		defer cancel()

		nodes, err := c.Nodes(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("%-6s %-22s %-8s %-7s %-7s %s\n", "ID", "ADDRESS", "STATE", "CHUNKS", "DISK%", "LAST SEEN")
		for _, n := range nodes {
			lastSeen := "never"
			if !n.LastSeen.IsZero() {
				lastSeen = n.LastSeen.Format(time.RFC3339)
			}
			fmt.Printf("%-6s %-22s %-8s %-7d %-7.1f %s\n", n.ID, n.Address, strings.ToUpper(n.State), n.NumChunks, n.DiskUsedPercent, lastSeen)
		}

		return nil
	},
}
