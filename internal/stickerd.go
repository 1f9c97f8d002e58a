package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"go.uber.org/atomic"
	"gopkg.in/yaml.v3"
)

// VERSION follows semantic versioning.
const VERSION = "1.4.0"

const prometheusGatherInterval = 10 * time.Second

type Stickerd struct {
	Logger zerolog.Logger `json:"-"`

	StartTime time.Time `json:"start_time" yaml:"start_time"`

	ctx    context.Context
	cancel func()

	Store      *AssetStore       `json:"-"`
	Repository *PackRepository   `json:"-"`
	Notifier   *ChangeNotifier   `json:"-"`
	Pending    *PendingStore     `json:"-"`
	Pipeline   *MutationPipeline `json:"-"`
	Generator  *PackGenerator    `json:"-"`
	Whitelist  *WhitelistChecker `json:"-"`

	ProducerClient MQClient `json:"-"`

	QueriesInflight *atomic.Int32 `json:"-"`

	RouterHandler fasthttp.RequestHandler `json:"-"`

	ConfigurationLocation string `json:"configuration_location"`

	Options StickerdOptions `json:"options" yaml:"options"`

	Configuration StickerdConfiguration `json:"configuration" yaml:"configuration"`

	configurationMu sync.RWMutex
	sync.Mutex
}

// NewStickerd creates the daemon state and initializes it. The codec decodes
// and scales image payloads; a nil codec disables tray regeneration and pack
// creation from raw images.
func NewStickerd(logger io.Writer, options StickerdOptions, codec AssetCodec) (sd *Stickerd, err error) {
	sd = &Stickerd{
		Logger: zerolog.New(logger).With().Timestamp().Logger(),

		ConfigurationLocation: options.ConfigurationLocation,

		configurationMu: sync.RWMutex{},
		Configuration:   StickerdConfiguration{},

		Options: options,

		QueriesInflight: atomic.NewInt32(0),
	}

	if options.DataDirectory == "" {
		return nil, ErrConfigurationValidateDataDir
	}

	if options.HTTPEnabled && options.HTTPHost == "" {
		return nil, ErrConfigurationValidateHTTP
	}

	sd.ctx, sd.cancel = context.WithCancel(context.Background())

	sd.Lock()
	defer sd.Unlock()

	configuration, err := sd.LoadConfiguration(sd.ConfigurationLocation)
	if err != nil {
		return nil, err
	}

	sd.configurationMu.Lock()
	defer sd.configurationMu.Unlock()

	sd.Configuration = configuration

	prefixes := configuration.Packs.GeneratedPrefixes
	if len(prefixes) == 0 {
		prefixes = defaultGeneratedPrefixes
	}

	sd.Store = NewAssetStore(options.DataDirectory, sd.Logger)

	sources := make([]PackSource, 0, 2)
	if configuration.Packs.BundledDirectory != "" {
		sources = append(sources, NewBundledSource(configuration.Packs.BundledDirectory, sd.Logger))
	}

	sources = append(sources, NewGeneratedSource(sd.Store, prefixes, sd.Logger))

	sd.Repository = NewPackRepository(sd.Logger, sources...)
	sd.Notifier = NewChangeNotifier(sd.Logger)
	sd.Pending = NewPendingStore(options.DataDirectory, sd.Logger)
	sd.Pipeline = NewMutationPipeline(sd.Logger, sd.Store, sd.Repository, sd.Notifier, sd.Pending, codec, sd)
	sd.Generator = NewPackGenerator(sd.Store, sd.Repository, codec, sd.Logger)
	sd.Whitelist = NewWhitelistChecker(
		configuration.Host.SourceIdentity,
		configuration.Host.WhitelistEndpoints,
		sd.Logger,
	)

	return sd, nil
}

// LoadConfiguration handles loading the configuration file.
func (sd *Stickerd) LoadConfiguration(path string) (configuration StickerdConfiguration, err error) {
	sd.Logger.Debug().
		Str("path", path).
		Msg("Loading configuration")

	defer func() {
		if err == nil {
			sd.Logger.Info().Msg("Configuration loaded")
		}
	}()

	file, err := os.ReadFile(path)
	if err != nil {
		return configuration, ErrReadConfigurationFailure
	}

	err = yaml.Unmarshal(file, &configuration)
	if err != nil {
		return configuration, ErrLoadConfigurationFailure
	}

	if configuration.Producer.Enabled && configuration.Producer.Type == "" {
		return configuration, fmt.Errorf("producer enabled without a type: %w", ErrLoadConfigurationFailure)
	}

	return configuration, nil
}

// SaveConfiguration handles saving the configuration file.
func (sd *Stickerd) SaveConfiguration(configuration *StickerdConfiguration, path string) error {
	sd.Logger.Debug().Msg("Saving configuration")

	data, err := yaml.Marshal(configuration)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	err = os.WriteFile(path, data, PermissionWrite)
	if err != nil {
		return fmt.Errorf("failed to write configuration to file: %w", err)
	}

	return nil
}

// Open starts up any listeners, configures services and warms the pack view.
func (sd *Stickerd) Open() {
	sd.StartTime = time.Now().UTC()
	sd.Logger.Info().Msgf("Starting stickerd. Version %s", VERSION)

	// Setup Prometheus
	go sd.setupPrometheus()

	// Setup HTTP
	if sd.Options.HTTPEnabled {
		go sd.setupHTTP()
	}

	if sd.Configuration.Producer.Enabled {
		err := sd.setupProducer()
		if err != nil {
			sd.Logger.Error().Err(err).Msg("Failed to connect producer")
		}
	}

	packs := sd.Repository.ListPacks()
	sd.Logger.Info().Int("packs", len(packs)).Msg("Pack view warmed")
}

// Close shuts down listeners and the producer gracefully.
func (sd *Stickerd) Close() error {
	sd.Logger.Info().Msg("Closing stickerd")

	if sd.ProducerClient != nil && !sd.ProducerClient.IsClosed() {
		sd.ProducerClient.Close()
	}

	sd.Notifier.Close()

	if sd.cancel != nil {
		sd.cancel()
	}

	return nil
}

// NotifyPackChanged publishes a pack change record to the producer. Returns
// ErrProducerMissing when no producer is connected.
func (sd *Stickerd) NotifyPackChanged(ctx context.Context, pack *StickerPack) error {
	if sd.ProducerClient == nil {
		return ErrProducerMissing
	}

	sd.configurationMu.RLock()
	sourceIdentity := sd.Configuration.Host.SourceIdentity
	channelName := sd.Configuration.Producer.ChannelName
	sd.configurationMu.RUnlock()

	data, err := json.Marshal(HostNotification{
		PackID:         pack.Identifier,
		SourceIdentity: sourceIdentity,
		PackName:       pack.Name,
		Publisher:      pack.Publisher,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = sd.ProducerClient.Publish(ctx, channelName, data)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

func (sd *Stickerd) setupProducer() error {
	sd.configurationMu.RLock()
	producerConfiguration := sd.Configuration.Producer
	sd.configurationMu.RUnlock()

	producerClient, err := NewMQClient(producerConfiguration.Type)
	if err != nil {
		return err
	}

	clientName := producerConfiguration.ClientName
	if clientName == "" {
		clientName = "stickerd"
	}

	err = producerClient.Connect(sd.ctx, clientName, producerConfiguration.Configuration)
	if err != nil {
		return fmt.Errorf("failed to connect to producer: %w", err)
	}

	sd.ProducerClient = producerClient

	sd.Logger.Info().
		Str("type", producerClient.String()).
		Msg("Producer connected")

	return nil
}

func (sd *Stickerd) setupPrometheus() error {
	prometheus.MustRegister(stickerdQueryCount)
	prometheus.MustRegister(stickerdMutationCount)
	prometheus.MustRegister(stickerdCacheRebuildCount)
	prometheus.MustRegister(stickerdAssetBytesServed)
	prometheus.MustRegister(stickerdPackCount)
	prometheus.MustRegister(stickerdStickerCount)
	prometheus.MustRegister(stickerdPendingCount)

	http.Handle("/metrics", promhttp.HandlerFor(
		prometheus.DefaultGatherer,
		promhttp.HandlerOpts{},
	))

	go sd.prometheusGatherer()

	sd.Logger.Info().Msgf("Serving prometheus at %s", sd.Options.PrometheusAddress)

	err := http.ListenAndServe(sd.Options.PrometheusAddress, nil)
	if err != nil {
		sd.Logger.Error().Str("host", sd.Options.PrometheusAddress).Err(err).Msg("Failed to serve prometheus server")

		return fmt.Errorf("failed to serve prometheus: %w", err)
	}

	return nil
}

func (sd *Stickerd) setupHTTP() error {
	sd.Logger.Info().Msgf("Serving http at %s", sd.Options.HTTPHost)

	sd.RouterHandler = sd.NewRestRouter()

	err := fasthttp.ListenAndServe(sd.Options.HTTPHost, sd.HandleRequest)
	if err != nil {
		sd.Logger.Error().Str("host", sd.Options.HTTPHost).Err(err).Msg("Failed to serve http server")

		return fmt.Errorf("failed to serve webserver: %w", err)
	}

	return nil
}

func (sd *Stickerd) prometheusGatherer() {
	t := time.NewTicker(prometheusGatherInterval)

	for range t.C {
		packs := sd.Repository.ListPacks()

		stickers := 0
		for _, pack := range packs {
			stickers += len(pack.Stickers)
		}

		pending, err := sd.Pending.List()
		if err != nil {
			sd.Logger.Warn().Err(err).Msg("Failed to list pending stickers")
		}

		stickerdPackCount.Set(float64(len(packs)))
		stickerdStickerCount.Set(float64(stickers))
		stickerdPendingCount.Set(float64(len(pending)))
	}
}
