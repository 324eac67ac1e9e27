package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tanisharajgor/Mongo-Exploratory/ingest"
	"github.com/tanisharajgor/Mongo-Exploratory/internal/app"
	"github.com/tanisharajgor/Mongo-Exploratory/messagebus"
	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

const maxLineBytes = 4 << 20

var (
	loadTopic  string
	loadFormat string
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Insert Extended JSON documents, one per line, or publish them with --topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadTopic, "topic", "", "publish to this message bus topic instead of inserting")
	loadCmd.Flags().StringVar(&loadFormat, "format", "ejson", "payload encoding when publishing: ejson or proto")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := utils.WithTraceID(cmd.Context(), utils.GenerateTraceID())
	var sink func(ctx context.Context, line []byte) error

	if loadTopic != "" {
		producer, err := messagebus.NewProducer(messagebus.LoadConfigMap(cfg.Ingest.ProducerConf), "restaurants-loader")
		if err != nil {
			return err
		}
		defer producer.Close()
		sink, err = publishSink(producer, loadTopic, loadFormat)
		if err != nil {
			return err
		}
	} else {
		application, err := app.NewApplication(ctx, oneShotConfig(cfg), logger)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		repo := application.Repository()
		sink = func(ctx context.Context, line []byte) error {
			var doc bson.D
			if err := bson.UnmarshalExtJSON(line, false, &doc); err != nil {
				return err
			}
			_, err := repo.Insert(ctx, doc)
			return err
		}
	}

	n, err := loadLines(ctx, f, sink)
	logger.Infow("Load finished", "file", args[0], "documents", n, "topic", loadTopic)
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents\n", n)
	return err
}

func publishSink(producer messagebus.Producer, topic, format string) (func(ctx context.Context, line []byte) error, error) {
	contentType := ingest.ContentTypeExtJSON
	switch format {
	case "", "ejson":
	case "proto":
		contentType = ingest.ContentTypeProtobuf
	default:
		return nil, fmt.Errorf("unknown format %q, expected ejson or proto", format)
	}

	return func(ctx context.Context, line []byte) error {
		value := line
		if contentType == ingest.ContentTypeProtobuf {
			var err error
			if value, err = ingest.EncodeProtobuf(line); err != nil {
				return err
			}
		}
		msg := messagebus.WithTraceHeader(ctx, &messagebus.Message{
			Topic:   topic,
			Value:   value,
			Headers: map[string]string{ingest.HeaderContentType: contentType},
		})
		_, _, err := producer.Send(ctx, msg)
		return err
	}, nil
}

// loadLines feeds every non-blank line of r to sink and stops at the
// first error, reporting it with its line number.
func loadLines(ctx context.Context, r io.Reader, sink func(ctx context.Context, line []byte) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	n, lineNo := 0, 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		// the scanner reuses its buffer
		if err := sink(ctx, append([]byte(nil), line...)); err != nil {
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		}
		n++
	}
	return n, scanner.Err()
}
