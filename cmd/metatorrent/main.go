package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/WendelHime/metatorrent/internal/decoder"
	"github.com/WendelHime/metatorrent/internal/logic"
	"github.com/WendelHime/metatorrent/internal/shared/models"
	"github.com/WendelHime/metatorrent/internal/tracker"
)

const createdBy = "metatorrent"

const usage = `usage: metatorrent [flags] <command> [command flags] <path>

commands:
  show      print a torrent's metadata and file tree
  magnet    print a torrent's magnet link
  create    hash a file or directory into a new torrent
  edit      change fields of an existing torrent
  trackers  scrape every tracker for seeders and leechers

flags:
`

// listFlag collects a repeated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var logLevel, logFormat, logFile string
	fs := flag.NewFlagSet("metatorrent", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&logLevel, "log-level", "warn", "Specify the log level: debug, info, warn or error")
	fs.StringVar(&logFormat, "log-format", "text", "Specify the log format: text or json")
	fs.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logOut := stderr
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger, err := newLogger(logOut, logLevel, logFormat)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	d := decoder.NewDecoder(logger)
	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "show":
		err = show(d, rest, stdout, stderr)
	case "magnet":
		err = magnetLink(d, rest, stdout, stderr)
	case "create":
		err = create(d, logic.NewCreator(logger), rest, stdout, stderr)
	case "edit":
		err = edit(logic.NewEditor(d, logger), rest, stdout, stderr)
	case "trackers":
		err = trackers(d, logic.NewChecker(tracker.NewTracker(logger), logger), rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return 2
	}
	if err != nil {
		logger.Error("command failed", slog.String("command", command), slog.Any("error", err))
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func onePath(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("%s takes exactly one path", fs.Name())
	}
	return fs.Arg(0), nil
}

func show(d decoder.MetafileDecoder, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path, err := onePath(fs, args)
	if err != nil {
		return err
	}
	t, err := d.Load(path)
	if err != nil {
		return err
	}
	out, err := render(t, defaultStyles())
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

func magnetLink(d decoder.MetafileDecoder, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("magnet", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path, err := onePath(fs, args)
	if err != nil {
		return err
	}
	t, err := d.Load(path)
	if err != nil {
		return err
	}
	uri, err := t.Magnet()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, uri)
	return nil
}

func create(d decoder.MetafileDecoder, c logic.Creator, args []string, stdout, stderr io.Writer) error {
	var (
		output, protocol, announce, comment, source string
		pieceLength                                 int64
		private, noDate, progress                   bool
		tiers, webSeeds                             listFlag
	)
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&output, "o", "", "Specify the output torrent file (default <name>.torrent)")
	fs.StringVar(&protocol, "protocol", "v1", "Specify the protocol: v1, v2 or hybrid")
	fs.Int64Var(&pieceLength, "piece-length", 0, "Specify the piece length in bytes (0 picks one)")
	fs.StringVar(&announce, "announce", "", "Specify the tracker announce URL")
	fs.Var(&tiers, "tier", "Add an announce-list tier of comma separated URLs (repeatable)")
	fs.StringVar(&comment, "comment", "", "Specify a comment")
	fs.StringVar(&source, "source", "", "Specify the source tag")
	fs.BoolVar(&private, "private", false, "Mark the torrent private")
	fs.BoolVar(&noDate, "no-date", false, "Omit the creation date")
	fs.BoolVar(&progress, "progress", true, "Show hashing progress")
	fs.Var(&webSeeds, "web-seed", "Add a web seed URL (repeatable)")
	path, err := onePath(fs, args)
	if err != nil {
		return err
	}

	t, err := c.Create(path, logic.CreateOptions{
		Protocol:     models.Protocol(protocol),
		PieceLength:  pieceLength,
		Announce:     announce,
		AnnounceList: splitTiers(tiers),
		Comment:      comment,
		CreatedBy:    createdBy,
		NoDate:       noDate,
		Private:      private,
		Source:       source,
		URLList:      webSeeds,
		Progress:     progress,
	})
	if err != nil {
		return err
	}
	if output == "" {
		output = t.Name() + ".torrent"
	}
	if err := d.Dump(output, t); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s\n", t.InfoHash(), output)
	return nil
}

func edit(e logic.Editor, args []string, stdout, stderr io.Writer) error {
	var (
		output, announce, comment, name, source string
		private, clean                          bool
		tiers, webSeeds                         listFlag
	)
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&output, "o", "", "Specify the output torrent file (default: overwrite the input)")
	fs.StringVar(&announce, "announce", "", "Replace the announce URL; empty removes it")
	fs.Var(&tiers, "tier", "Replace the announce-list with these tiers of comma separated URLs (repeatable)")
	fs.StringVar(&comment, "comment", "", "Replace the comment; empty removes it")
	fs.StringVar(&name, "name", "", "Rename the torrent")
	fs.StringVar(&source, "source", "", "Replace the source tag; empty removes it")
	fs.BoolVar(&private, "private", false, "Set or clear the private flag")
	fs.BoolVar(&clean, "clean", false, "Drop root fields other than info and trackers")
	fs.Var(&webSeeds, "web-seed", "Replace the web seeds (repeatable)")
	path, err := onePath(fs, args)
	if err != nil {
		return err
	}
	if output == "" {
		output = path
	}

	edits := logic.Edits{Clean: clean}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "announce":
			edits.Announce = &announce
		case "tier":
			edits.AnnounceList = append([][]string{}, splitTiers(tiers)...)
		case "comment":
			edits.Comment = &comment
		case "name":
			edits.Name = &name
		case "source":
			edits.Source = &source
		case "private":
			edits.Private = &private
		case "web-seed":
			edits.URLList = []string{}
			for _, u := range webSeeds {
				if u != "" {
					edits.URLList = append(edits.URLList, u)
				}
			}
		}
	})

	t, err := e.EditFile(path, output, edits)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s\n", t.InfoHash(), output)
	return nil
}

func trackers(d decoder.MetafileDecoder, c logic.Checker, args []string, stdout, stderr io.Writer) error {
	var timeout time.Duration
	fs := flag.NewFlagSet("trackers", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.DurationVar(&timeout, "timeout", 15*time.Second, "Specify how long to wait for all trackers")
	path, err := onePath(fs, args)
	if err != nil {
		return err
	}
	t, err := d.Load(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	fmt.Fprintln(stdout, renderReports(c.Check(ctx, t), defaultStyles()))
	return nil
}

func splitTiers(tiers []string) [][]string {
	var out [][]string
	for _, tier := range tiers {
		var urls []string
		for _, u := range strings.Split(tier, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) > 0 {
			out = append(out, urls)
		}
	}
	return out
}
