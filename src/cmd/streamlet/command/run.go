package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/streamlet/src/config"
	"github.com/mosaicnetworks/streamlet/src/metrics"
	"github.com/mosaicnetworks/streamlet/src/service"
	"github.com/mosaicnetworks/streamlet/src/streamlet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that runs a simulation
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a simulated Streamlet network",
		PreRunE: loadConfig,
		RunE:    runStreamlet,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runStreamlet(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	p, err := streamlet.NewProtocol(_config, nil, nil)
	if err != nil {
		logger.Error("Cannot initialize protocol: ", err)
		return err
	}
	defer p.Close()

	registry := prometheus.NewRegistry()
	p.AddObserver(metrics.NewCollector(registry))

	if _config.ServiceAddr != "" {
		serviceServer := service.NewService(_config.ServiceAddr, p, registry,
			logger.WithField("component", "service"))
		go serviceServer.Serve()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx, _config.Epochs, _config.TxPerEpoch)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if _config.JSON {
		out, err := report.Marshal()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else {
		fmt.Print(report.String())
	}

	if !report.Consistent {
		return fmt.Errorf("finalized sequences of honest nodes diverged")
	}

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("datadir", "d", _config.DataDir, "Directory containing an optional streamlet.toml")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file, as JSON")

	// Network
	cmd.Flags().IntP("nodes", "n", _config.Nodes, "Number of nodes")
	cmd.Flags().IntP("epochs", "e", _config.Epochs, "Number of epochs to run")
	cmd.Flags().Int("txs", _config.TxPerEpoch, "Transactions per block")
	cmd.Flags().String("finality", _config.Finality, "Finalization rule: three-chain or two-chain")
	cmd.Flags().Int("workers", _config.Workers, "Goroutines delivering messages to nodes")

	// Delivery
	cmd.Flags().Float64("drop", _config.DropRate, "Probability of losing a message")
	cmd.Flags().Int("max-delay", _config.MaxDelay, "Maximum delay of a message, in epochs")
	cmd.Flags().Int64("seed", _config.Seed, "Seed of the network's random source")

	// Byzantine nodes
	cmd.Flags().StringSlice("silent", nil, "Ids of silent nodes")
	cmd.Flags().StringSlice("equivocators", nil, "Ids of equivocating voters")
	cmd.Flags().StringSlice("fabricators", nil, "Ids of nodes proposing fabricated blocks")

	// Output
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service, disabled if empty")
	cmd.Flags().Bool("json", _config.JSON, "Print the report as JSON")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	logger := _config.BaseLogger()
	logger.Level = config.LogLevel(_config.LogLevel)

	if _config.LogFile != "" {
		addFileHook(logger, _config.LogFile)
	}

	_config.Logger().WithFields(logrus.Fields{
		"DataDir":      _config.DataDir,
		"LogLevel":     _config.LogLevel,
		"LogFile":      _config.LogFile,
		"Nodes":        _config.Nodes,
		"Epochs":       _config.Epochs,
		"TxPerEpoch":   _config.TxPerEpoch,
		"Finality":     _config.Finality,
		"Workers":      _config.Workers,
		"DropRate":     _config.DropRate,
		"MaxDelay":     _config.MaxDelay,
		"Seed":         _config.Seed,
		"Silent":       _config.Silent,
		"Equivocators": _config.Equivocators,
		"Fabricators":  _config.Fabricators,
		"ServiceAddr":  _config.ServiceAddr,
	}).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/streamlet.toml (.json, .yaml also work)
	viper.SetConfigName("streamlet")
	viper.AddConfigPath(_config.DataDir)

	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

// addFileHook copies every entry, whatever its level, to path.
func addFileHook(logger *logrus.Logger, path string) {
	pathMap := lfshook.PathMap{}
	for _, level := range logrus.AllLevels {
		pathMap[level] = path
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.JSONFormatter{},
	))
}
