// resolve 離線解析辨識結果：讀取模型輸出檔，比對營養素資料庫後以 JSON 輸出品項。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nutrient-resolver/internal/app"
	"nutrient-resolver/internal/core/nutrient"
	"nutrient-resolver/internal/core/recognition"
	"nutrient-resolver/internal/core/resolution"
	"nutrient-resolver/internal/infrastructure/config"
	"nutrient-resolver/internal/pkg/common"
)

type options struct {
	catalogPath string
	userID      string
	lookup      bool
	wait        time.Duration
	logLevel    string
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "resolve [file]",
		Short: "Resolve a recognition output file against the nutrient catalog",
		Long: "Reads model output (raw text or JSON, \"-\" for stdin), matches each food against the catalog\n" +
			"and prints the resulting session as JSON. With --lookup, unknown items are resolved\n" +
			"through the external model before printing.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), out, cmd.InOrStdin(), path, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.catalogPath, "catalog", "", "catalog JSON file (default from config)")
	f.StringVar(&opts.userID, "user", "", "user ID whose custom items are matched")
	f.BoolVar(&opts.lookup, "lookup", false, "resolve unknown items through the external model")
	f.DurationVar(&opts.wait, "wait", 5*time.Minute, "maximum time to wait for lookups")
	f.StringVar(&opts.logLevel, "log-level", "error", "log level")
	return cmd
}

func run(ctx context.Context, out io.Writer, stdin io.Reader, path string, opts *options) error {
	common.InitStderrLogger(opts.logLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if opts.catalogPath != "" {
		cfg.Catalog.Path = opts.catalogPath
	}

	content, err := readInput(stdin, path)
	if err != nil {
		return err
	}
	res, err := recognition.Parse(content)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{SkipStore: opts.userID == "", SkipLookup: !opts.lookup})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	snap, err := a.Sessions.CreateSession(ctx, opts.userID, res)
	if err != nil {
		return err
	}
	if opts.lookup && snap.Pending > 0 {
		snap, err = waitSettled(ctx, a.Sessions, snap.ID, opts.wait)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// waitSettled 等待佇列處理完所有待查品項（失敗的品項不再重試）
func waitSettled(ctx context.Context, sessions *resolution.Service, id string, limit time.Duration) (resolution.Snapshot, error) {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		snap, err := sessions.Session(id)
		if err != nil {
			return snap, err
		}
		if settled(snap.Items) {
			return snap, nil
		}

		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-deadline.C:
			common.LogWarn("等待查詢逾時，輸出目前結果", zap.Duration("wait", limit))
			return snap, nil
		case <-ticker.C:
		}
	}
}

func settled(items []nutrient.FoodItem) bool {
	for _, it := range items {
		switch it.State {
		case nutrient.StateNeedsFetch, nutrient.StateNeedsManualFetch, nutrient.StateFetching:
			return false
		}
	}
	return true
}
