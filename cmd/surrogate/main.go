package main

import (
	"context"
	"errors"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"k8s.io/component-base/logs"
	"k8s.io/klog/v2"

	"github.com/budgetopt/surrogate/apis/config/v1alpha1"
	"github.com/budgetopt/surrogate/pkg/pipeline"
)

var (
	configPath string
	outputPath string
	seed       uint64
	plotDir    string
)

func init() {
	pflag.StringVar(&configPath, "config", "", "Path to the SurrogateConfiguration file.")
	pflag.StringVar(&outputPath, "output", "", "Write the model here instead of export.outputPath.")
	pflag.Uint64Var(&seed, "seed", 0, "Seed every random stream, overriding the configuration.")
	pflag.StringVar(&plotDir, "plot-dir", "", "Write a Pareto front plot of one reference search into this directory.")
}

func main() {
	goflags := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(goflags)
	pflag.CommandLine.AddGoFlagSet(goflags)
	pflag.Parse()

	logs.InitLogs()
	defer logs.FlushLogs()

	if err := run(); err != nil {
		klog.ErrorS(err, "Build failed")
		logs.FlushLogs()
		os.Exit(1)
	}
}

func run() error {
	if configPath == "" {
		return errors.New("--config is required")
	}
	cfg, err := v1alpha1.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", configPath, err)
	}
	if outputPath != "" {
		cfg.Export.OutputPath = outputPath
	}
	if pflag.CommandLine.Changed("seed") {
		cfg.Seed = &seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = klog.NewContext(ctx, klog.Background())

	res, err := pipeline.Run(ctx, cfg, pipeline.Options{PlotDir: plotDir})
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s) from %d samples in %s\n",
		res.OutputPath, humanize.Bytes(uint64(res.Size)), res.Samples, res.Elapsed.Round(time.Millisecond))
	return nil
}
