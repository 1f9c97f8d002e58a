package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/colorstickers/stickerd/internal"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configurationLocation := flag.String("configuration", os.Getenv("CONFIGURATION_PATH"), "Path of configuration file")
	dataDirectory := flag.String("dataDirectory", os.Getenv("DATA_DIRECTORY"), "Root of the generated pack store")
	prometheusAddress := flag.String("prometheusAddress", os.Getenv("PROMETHEUS_ADDRESS"), "Prometheus address")

	httpEnabled := flag.Bool("httpEnabled", os.Getenv("HTTP_ENABLED") == "true", "Enables the query protocol server")
	httpHost := flag.String("httpHost", os.Getenv("HTTP_HOST"), "Host for the query protocol server to listen on")

	loggingLevel := flag.String("level", os.Getenv("LOGGING_LEVEL"), "Logging level")

	loggingFileLoggingEnabled := flag.Bool("fileLoggingEnabled", os.Getenv("LOGGING_FILE_LOGGING_ENABLED") == "true", "When enabled, will save logs to files")
	loggingEncodeAsJSON := flag.Bool("encodeAsJSON", os.Getenv("LOGGING_ENCODE_AS_JSON") == "true", "When enabled, will save logs as JSON")
	loggingCompress := flag.Bool("compress", os.Getenv("LOGGING_COMPRESS") == "true", "If true, will compress log files once reached max size")
	loggingDirectory := flag.String("directory", os.Getenv("LOGGING_DIRECTORY"), "Directory to store logs in")
	loggingFilename := flag.String("filename", os.Getenv("LOGGING_FILENAME"), "Filename to store saved logs as")
	loggingMaxSize := flag.Int("maxSize", 100, "Maximum size for log files before being split into separate files")
	loggingMaxBackups := flag.Int("maxBackups", 5, "Maximum number of log files before being deleted")
	loggingMaxAge := flag.Int("maxAge", 31, "Maximum age in days for a log file")

	flag.Parse()

	// Load environment variables from an optional .env file.
	_ = godotenv.Load()

	level, err := zerolog.ParseLevel(*loggingLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	writer := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.Stamp,
	}

	var writers zerolog.LevelWriter

	if *loggingFileLoggingEnabled {
		if err := os.MkdirAll(*loggingDirectory, internal.PermissionsDefault); err != nil {
			fmt.Printf("Failed to create log directory %s: %v\n", *loggingDirectory, err)
			os.Exit(1)
		}

		fileLogger := &lumberjack.Logger{
			Filename:   *loggingDirectory + "/" + *loggingFilename,
			MaxSize:    *loggingMaxSize,
			MaxBackups: *loggingMaxBackups,
			MaxAge:     *loggingMaxAge,
			Compress:   *loggingCompress,
		}

		if *loggingEncodeAsJSON {
			writers = zerolog.MultiLevelWriter(writer, fileLogger)
		} else {
			writers = zerolog.MultiLevelWriter(writer, zerolog.ConsoleWriter{
				Out:        fileLogger,
				TimeFormat: time.Stamp,
				NoColor:    true,
			})
		}
	} else {
		writers = zerolog.MultiLevelWriter(writer)
	}

	options := internal.StickerdOptions{
		ConfigurationLocation: *configurationLocation,
		DataDirectory:         *dataDirectory,
		PrometheusAddress:     *prometheusAddress,

		HTTPHost:    *httpHost,
		HTTPEnabled: *httpEnabled,
	}

	sd, err := internal.NewStickerd(writers, options, nil)
	if err != nil {
		fmt.Printf("Failed to create stickerd: %v\n", err)
		os.Exit(1)
	}

	sd.Open()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	if err := sd.Close(); err != nil {
		sd.Logger.Warn().Err(err).Msg("Exceptions whilst closing stickerd")
	}
}
