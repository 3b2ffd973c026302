package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/heimdex/gifforge/internal/jobs"
	"github.com/heimdex/gifforge/internal/media"
	"github.com/heimdex/gifforge/internal/pipeline"
)

type makeOptions struct {
	prompt string
	url    bool
	direct bool
	out    string
}

func newMakeCommand(ctx *commandContext) *cobra.Command {
	var opts makeOptions

	cmd := &cobra.Command{
		Use:   "make <video-file|url>",
		Short: "Generate GIFs from one video without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.prompt) == "" {
				return errors.New("--prompt is required")
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runMake(runCtx, cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "What the GIFs should be about")
	cmd.Flags().BoolVar(&opts.url, "url", false, "Treat the argument as a page URL and fetch it with yt-dlp")
	cmd.Flags().BoolVar(&opts.direct, "direct", false, "Treat the argument as a direct MP4 URL")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output directory (default: storage gifs/<job_id>)")
	cmd.MarkFlagsMutuallyExclusive("url", "direct")
	return cmd
}

func runMake(parent context.Context, cmd *cobra.Command, cc *commandContext, source string, opts makeOptions) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	logger := cc.logger()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx := parent
	if timeout := cfg.JobTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	jobID := jobs.NewID()
	video := source
	if opts.url || opts.direct {
		video = a.storage.InputPath(jobID)
		defer a.storage.DiscardInput(jobID)
		if _, err := a.acquirer.Fetch(ctx, source, opts.direct, video); err != nil {
			return err
		}
	} else if _, err := os.Stat(video); err != nil {
		return fmt.Errorf("input video: %w", err)
	}

	outDir := opts.out
	if outDir == "" {
		outDir = a.storage.OutputDir(jobID)
	}
	if outDir, err = filepath.Abs(outDir); err != nil {
		return err
	}

	res, err := a.orchestrator.Run(ctx, pipeline.Request{
		JobID:     jobID,
		Video:     video,
		Prompt:    opts.prompt,
		OutputDir: outDir,
		WorkDir:   a.storage.WorkDir(jobID),
	})
	if err != nil {
		return err
	}

	printResult(cmd, outDir, res)
	return nil
}

func printResult(cmd *cobra.Command, outDir string, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	if len(res.Clips) == 0 {
		fmt.Fprintln(out, "No segments found; nothing rendered.")
		return
	}

	rows := make([][]string, 0, len(res.Clips))
	var total int64
	for _, c := range res.Clips {
		total += c.Bytes
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			fmt.Sprintf("%ss-%ss", media.FormatSeconds(c.Window.Start), media.FormatSeconds(c.Window.End)),
			strconv.Itoa(c.Score),
			strconv.Itoa(c.Frames),
			humanize.Bytes(uint64(c.Bytes)),
			filepath.Base(c.Path),
			c.Text,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Window", "Score", "Frames", "Size", "File", "Caption"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	fmt.Fprintf(out, "Output: %s (%s total, no audio: %s, fallback: %s)\n",
		outDir, humanize.Bytes(uint64(total)), yesNo(res.NoAudio), yesNo(res.Fallback))
}
