package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/Brownie44l1/imgclass-api/internal/classify"
	"github.com/Brownie44l1/imgclass-api/internal/session"
)

const helpText = `Commands:
  load <url|file>     load an image from a URL or a local file
  topk <n>            number of predictions to show
  threshold <0..1>    minimum confidence
  crop on|off         center-crop before classifying
  classify            classify the loaded image
  info                show the loaded image and settings
  clear               forget the loaded image
  quit`

var completer = readline.NewPrefixCompleter(
	readline.PcItem("load"),
	readline.PcItem("topk"),
	readline.PcItem("threshold"),
	readline.PcItem("crop", readline.PcItem("on"), readline.PcItem("off")),
	readline.PcItem("classify"),
	readline.PcItem("info"),
	readline.PcItem("clear"),
	readline.PcItem("help"),
	readline.PcItem("quit"),
)

// console holds one user's settings and drives a single session.
type console struct {
	service *classify.Service
	sess    *session.Session
	params  classify.Params
	out     io.Writer
}

func newConsole(service *classify.Service, sess *session.Session, out io.Writer) *console {
	return &console{
		service: service,
		sess:    sess,
		params:  service.Settings().Defaults,
		out:     out,
	}
}

// exec runs one command line and reports whether the user asked to quit.
func (c *console) exec(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(c.out, helpText)
	case "load":
		c.load(ctx, arg)
	case "topk":
		k, err := strconv.Atoi(arg)
		if err != nil || k < 1 || k > c.service.Settings().MaxTopK {
			fmt.Fprintf(c.out, "topk must be between 1 and %d\n", c.service.Settings().MaxTopK)
			return false
		}
		c.params.TopK = k
	case "threshold":
		th, err := strconv.ParseFloat(arg, 64)
		if err != nil || th < 0 || th > 1 {
			fmt.Fprintln(c.out, "threshold must be between 0 and 1")
			return false
		}
		c.params.Threshold = th
	case "crop":
		switch strings.ToLower(arg) {
		case "on":
			c.params.CenterCrop = true
		case "off":
			c.params.CenterCrop = false
		default:
			fmt.Fprintln(c.out, "usage: crop on|off")
		}
	case "classify":
		c.classify(ctx)
	case "info":
		c.info()
	case "clear":
		c.sess.Clear()
		fmt.Fprintln(c.out, "Image cleared.")
	default:
		fmt.Fprintf(c.out, "unknown command %q, try 'help'\n", cmd)
	}
	return false
}

func (c *console) load(ctx context.Context, target string) {
	if target == "" {
		fmt.Fprintln(c.out, "usage: load <url|file>")
		return
	}

	var (
		loaded *classify.Loaded
		err    error
	)
	if data, readErr := os.ReadFile(target); readErr == nil {
		loaded, err = c.service.LoadUpload(filepath.Base(target), data)
	} else {
		loaded, err = c.service.LoadURL(ctx, target)
	}
	if err != nil {
		fmt.Fprintln(c.out, classify.UserMessage(err))
		return
	}

	c.sess.Load(loaded)
	fmt.Fprintf(c.out, "Loaded %s (%s, %dx%d)\n", loaded.Source, loaded.Format, loaded.Width, loaded.Height)
}

func (c *console) classify(ctx context.Context) {
	result, err := c.sess.Classify(func(loaded *classify.Loaded) (*classify.Result, error) {
		return c.service.Classify(ctx, loaded, c.params)
	})
	if err != nil {
		if errors.Is(err, session.ErrNoImage) {
			fmt.Fprintln(c.out, "Load an image first.")
			return
		}
		fmt.Fprintln(c.out, classify.UserMessage(err))
		return
	}

	if result.NoQualifyingResults {
		fmt.Fprintln(c.out, classify.NoQualifyingResultsMessage)
	}
	for i, p := range result.Predictions {
		fmt.Fprintf(c.out, "%d. %-30s %5.1f%%\n", i+1, p.Label, p.Score*100)
	}
	fmt.Fprintf(c.out, "Inference time: %s\n", result.DurationText())
}

func (c *console) info() {
	fmt.Fprintf(c.out, "top_k=%d threshold=%.2f center_crop=%v\n", c.params.TopK, c.params.Threshold, c.params.CenterCrop)
	img, err := c.sess.Image()
	if err != nil {
		fmt.Fprintln(c.out, "No image loaded.")
		return
	}
	fmt.Fprintf(c.out, "Image: %s (%s, %dx%d)\n", img.Source, img.Format, img.Width, img.Height)
}
