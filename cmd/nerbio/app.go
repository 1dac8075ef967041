package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/revelaction/nerbio/config"
	"github.com/revelaction/nerbio/corpus"
	"github.com/revelaction/nerbio/internal"
	"github.com/revelaction/nerbio/render"
	sent "github.com/revelaction/nerbio/sentence"
	"github.com/revelaction/nerbio/storage"
)

// Option structs for subcommands that have flags
type LoadOptions struct {
	Json    bool
	NoColor bool
	Limit   int
}

type ImportOptions struct {
	Name string
}

type LsOptions struct {
	Match string
}

type TrainOptions struct {
	// Model is the path the trained model is saved to
	Model string

	// Base is a model loaded before training
	Base string
}

type PredictOptions struct {
	Json    bool
	NoColor bool
	Format  string
}

type QueryOptions struct {
	NoColor  bool
	NoPrefix bool
	Format   string
}

// env is the state shared by the commands of one invocation.
type env struct {
	ui   UI
	cfg  *config.Config
	pool *Pool
}

func (e *env) repository() (storage.Repository, error) {
	return NewRepository(e.pool, e.cfg.Store.Path)
}

// corpus resolves arg to a corpus file or, when no such file exists, to a
// corpus of the store by name.
func (e *env) corpus(arg string) (sent.Corpus, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		examples, labels, err := corpus.NewLoader(e.cfg.LoaderOptions()).Load(arg)
		if err != nil {
			return sent.Corpus{}, err
		}
		return sent.Corpus{Name: corpusName(arg), Labels: labels, Examples: examples}, nil
	}

	repo, err := e.repository()
	if err != nil {
		return sent.Corpus{}, fmt.Errorf("%s is not a corpus file: %w", arg, err)
	}
	return repo.ReadName(arg)
}

// corpusArg returns the single corpus argument of c or, without arguments,
// the configured corpus.path.
func (e *env) corpusArg(c *cli.Context) (string, error) {
	switch {
	case c.NArg() == 1:
		return c.Args().First(), nil
	case c.NArg() == 0 && e.cfg.Corpus.Path != "":
		return e.cfg.Corpus.Path, nil
	}
	return "", fmt.Errorf("%s needs one corpus: give it as argument or set corpus.path", c.Command.Name)
}

func corpusName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "output format: " + strings.Join(render.SupportedFormats(), ", "),
		Value: render.Defaultformat,
	}
}

func newApp(ui UI) *cli.App {
	e := &env{ui: ui, pool: &Pool{}}

	return &cli.App{
		Name:      "nerbio",
		Usage:     "fine-tune an entity recognizer on token-per-line biomedical corpora",
		Writer:    ui.Out,
		ErrWriter: ui.Err,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file (default ./nerbio.yaml)"},
			&cli.StringFlag{Name: "store", Aliases: []string{"s"}, Usage: "store directory or SQLite file"},
			&cli.StringFlag{Name: "engine", Usage: "engine kind: perceptron or remote"},
			&cli.StringFlag{Name: "log-level", Usage: "panic, fatal, error, warn, info, debug or trace"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if c.IsSet("store") {
				cfg.Store.Path = c.String("store")
			}
			if c.IsSet("engine") {
				cfg.Engine.Kind = c.String("engine")
			}
			if c.IsSet("log-level") {
				cfg.Log.Level = c.String("log-level")
			}

			internal.Setup(ui.Err, cfg.Log.Level)
			e.cfg = cfg
			return nil
		},
		After: func(c *cli.Context) error {
			return e.pool.Close()
		},
		Commands: []*cli.Command{
			{
				Name:      "load",
				Usage:     "convert a corpus file into examples and print them",
				ArgsUsage: "[corpus.tsv]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the examples as JSON"},
					&cli.BoolFlag{Name: "no-color"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "print at most n examples (0 prints all)"},
				},
				Action: func(c *cli.Context) error {
					path, err := e.corpusArg(c)
					if err != nil {
						return err
					}
					opts := LoadOptions{Json: c.Bool("json"), NoColor: c.Bool("no-color"), Limit: c.Int("limit")}
					return loadCommand(path, e.cfg.LoaderOptions(), opts, e.ui)
				},
			},
			{
				Name:      "import",
				Usage:     "load corpus files and write them to the store",
				ArgsUsage: "<corpus.tsv>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "corpus name (single file only, default file name)"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return fmt.Errorf("import needs at least one corpus file")
					}
					repo, err := e.repository()
					if err != nil {
						return err
					}
					opts := ImportOptions{Name: c.String("name")}
					return importCommand(repo, c.Args().Slice(), e.cfg.LoaderOptions(), opts, e.ui)
				},
			},
			{
				Name:  "ls",
				Usage: "list the corpora of the store",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "match", Aliases: []string{"m"}, Usage: "only corpora with a label containing this string"},
				},
				Action: func(c *cli.Context) error {
					repo, err := e.repository()
					if err != nil {
						return err
					}
					return lsCommand(repo, LsOptions{Match: c.String("match")}, e.ui)
				},
			},
			{
				Name:      "labels",
				Usage:     "print the labels of the corpora of the store",
				ArgsUsage: "[pattern]",
				Action: func(c *cli.Context) error {
					repo, err := e.repository()
					if err != nil {
						return err
					}
					return labelsCommand(repo, c.Args().First(), e.ui)
				},
			},
			{
				Name:      "stat",
				Usage:     "print statistics of a corpus file or stored corpus",
				ArgsUsage: "[corpus.tsv|name]",
				Action: func(c *cli.Context) error {
					arg, err := e.corpusArg(c)
					if err != nil {
						return err
					}
					crp, err := e.corpus(arg)
					if err != nil {
						return err
					}
					return statCommand(crp, e.ui)
				},
			},
			{
				Name:      "train",
				Usage:     "train the ner stage of the engine on a corpus",
				ArgsUsage: "[corpus.tsv|name]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "model", Aliases: []string{"o"}, Usage: "save the trained model to this path"},
					&cli.StringFlag{Name: "base", Usage: "load this model before training"},
					&cli.IntFlag{Name: "epochs"},
					&cli.Float64Flag{Name: "dropout"},
					&cli.Int64Flag{Name: "seed"},
					&cli.IntFlag{Name: "patience", Usage: "stop after this many epochs without improvement (0 never stops early)"},
				},
				Action: func(c *cli.Context) error {
					arg, err := e.corpusArg(c)
					if err != nil {
						return err
					}

					if c.IsSet("epochs") {
						e.cfg.Train.Epochs = c.Int("epochs")
					}
					if c.IsSet("dropout") {
						e.cfg.Train.Dropout = c.Float64("dropout")
					}
					if c.IsSet("seed") {
						e.cfg.Train.Seed = c.Int64("seed")
					}
					if c.IsSet("patience") {
						e.cfg.Train.Patience = c.Int("patience")
					}

					crp, err := e.corpus(arg)
					if err != nil {
						return err
					}

					eng, err := NewEngine(c.Context, e.cfg.Engine, e.cfg.Train.Seed, c.String("base"))
					if err != nil {
						return err
					}

					// runs are recorded only when a store is configured
					var runs storage.RunWriter
					if e.cfg.Store.Path != "" {
						repo, err := e.repository()
						if err != nil {
							return err
						}
						runs = repo
					}

					opts := TrainOptions{Model: c.String("model"), Base: c.String("base")}
					return trainCommand(c.Context, eng, e.cfg.Engine.Kind, runs, crp, e.cfg.SessionConfig(), opts, internal.GetLogger(), e.ui)
				},
			},
			{
				Name:      "predict",
				Usage:     "detect the entities of texts given as arguments or read line by line from stdin",
				ArgsUsage: "[text]...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model to load"},
					&cli.BoolFlag{Name: "json"},
					&cli.BoolFlag{Name: "no-color"},
					formatFlag(),
				},
				Action: func(c *cli.Context) error {
					eng, err := NewEngine(c.Context, e.cfg.Engine, e.cfg.Train.Seed, c.String("model"))
					if err != nil {
						return err
					}
					opts := PredictOptions{Json: c.Bool("json"), NoColor: c.Bool("no-color"), Format: c.String("format")}
					return predictCommand(c.Context, eng, c.Args().Slice(), opts, e.ui)
				},
			},
			{
				Name:  "query",
				Usage: "interactive prompt detecting the entities of each line",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model to load"},
					&cli.BoolFlag{Name: "no-color"},
					&cli.BoolFlag{Name: "no-prefix"},
					formatFlag(),
				},
				Action: func(c *cli.Context) error {
					eng, err := NewEngine(c.Context, e.cfg.Engine, e.cfg.Train.Seed, c.String("model"))
					if err != nil {
						return err
					}
					opts := QueryOptions{NoColor: c.Bool("no-color"), NoPrefix: c.Bool("no-prefix"), Format: c.String("format")}
					return queryCommand(c.Context, eng, opts, e.ui)
				},
			},
			{
				Name:  "runs",
				Usage: "list the training runs recorded in the store",
				Action: func(c *cli.Context) error {
					repo, err := e.repository()
					if err != nil {
						return err
					}
					return runsCommand(repo, e.ui)
				},
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(c *cli.Context) error {
					return versionCommand(e.ui)
				},
			},
		},
	}
}
