package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	dbm "github.com/cometbft/cometbft-db"
	"github.com/urfave/cli/v2"

	"github.com/CosmWasm/txpipe"
	"github.com/CosmWasm/txpipe/client"
	"github.com/CosmWasm/txpipe/gasconfig"
	"github.com/CosmWasm/txpipe/intentstore"
	"github.com/CosmWasm/txpipe/invalidate"
	"github.com/CosmWasm/txpipe/observability/logging"
	"github.com/CosmWasm/txpipe/server"
)

var Version = "v0.1.0"

// daemonConfig is the TOML file handed to --config.
type daemonConfig struct {
	ListenAddress  string            `toml:"ListenAddress"`
	DataDir        string            `toml:"DataDir"`
	GasConfigPath  string            `toml:"GasConfigPath"`
	SignerEndpoint string            `toml:"SignerEndpoint"`
	Endpoints      map[string]string `toml:"Endpoints"`
	SimulationTTL  string            `toml:"SimulationTTL"`
}

func loadConfig(path string) (daemonConfig, error) {
	cfg := daemonConfig{
		ListenAddress: "127.0.0.1:8780",
		DataDir:       "data",
	}
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s has unknown keys: %v", path, undecoded)
	}
	return cfg, nil
}

func main() {
	app := &cli.App{
		Name:    "txpiped",
		Usage:   "transaction intent pipeline daemon",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the daemon TOML config",
				EnvVars: []string{"TXPIPE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "listen address, overrides the config file",
				EnvVars: []string{"TXPIPE_LISTEN"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "write rotated JSON logs to this file instead of stdout",
				EnvVars: []string{"TXPIPE_LOG_FILE"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	var logOut io.Writer = os.Stdout
	if path := c.String("log-file"); path != "" {
		logOut = logging.RotatingWriter(path)
	}
	log := logging.Setup("txpiped", logOut)

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if listen := c.String("listen"); listen != "" {
		cfg.ListenAddress = listen
	}

	gasTable, err := gasconfig.Load(cfg.GasConfigPath)
	if err != nil {
		return fmt.Errorf("load gas config: %w", err)
	}

	var ttl time.Duration
	if cfg.SimulationTTL != "" {
		ttl, err = time.ParseDuration(cfg.SimulationTTL)
		if err != nil {
			return fmt.Errorf("parse SimulationTTL: %w", err)
		}
	}

	httpClient := client.NewHTTPClient(client.HTTPConfig{
		Endpoints:      cfg.Endpoints,
		SignerEndpoint: cfg.SignerEndpoint,
	})

	pipeline, err := txpipe.New(txpipe.Config{
		Querier:       httpClient,
		Signer:        httpClient,
		GasTable:      gasTable,
		Sink:          invalidate.NewRegistry(),
		SimulationTTL: ttl,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	db, err := dbm.NewGoLevelDB("intents", cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open intent store: %w", err)
	}
	defer db.Close()

	srv := server.New(pipeline, intentstore.New(db), log)

	log.Info("txpiped listening", "addr", cfg.ListenAddress, "chains", len(cfg.Endpoints))
	return http.ListenAndServe(cfg.ListenAddress, srv.Router())
}
