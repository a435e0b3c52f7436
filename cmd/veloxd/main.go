package main

import (
	"context"
	"embed"
	"encoding/binary"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veloxdb/veloxdb/pkg/velox/api"
	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/engine/boltengine"
	"github.com/veloxdb/veloxdb/pkg/velox/log"
	"github.com/veloxdb/veloxdb/pkg/velox/objectmodel"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

//go:embed schema.yaml
var embeddedFS embed.FS

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "veloxd",
	Short:   "veloxd hosts the VeloxDB object model over a bbolt-backed storage engine",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("veloxd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the storage engine and host the object model's HTTP surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		addr, _ := cmd.Flags().GetString("addr")
		schemaPath, _ := cmd.Flags().GetString("schema")

		logger := log.WithComponent("veloxd")

		if err := os.MkdirAll(dataDir, 0750); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		sch, err := loadSchema(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to load schema: %w", err)
		}
		logger.Info().Int("classes", len(sch.Classes())).Msg("schema loaded")

		cityIndexes, err := cityIndexSpecs(sch)
		if err != nil {
			return fmt.Errorf("failed to build index specs: %w", err)
		}

		eng, err := boltengine.Open(dataDir, sch, cityIndexes)
		if err != nil {
			return fmt.Errorf("failed to open engine: %w", err)
		}
		defer eng.Close()
		logger.Info().Str("data_dir", dataDir).Msg("engine opened")

		cfg := objectmodel.Config{TransactionKind: engine.ReadWrite}

		readyCheck := func() error {
			txn, err := eng.CreateTransaction(context.Background(), engine.Read)
			if err != nil {
				return err
			}
			defer txn.Rollback()
			scan, err := txn.BeginClassScan(sch.Classes()[0].ClassID, false)
			if err != nil {
				return err
			}
			defer scan.Close()
			return nil
		}

		apiServer := api.NewServer(Version, readyCheck)
		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", addr).Msg("http server starting")
			if err := apiServer.Start(addr); err != nil {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()

		// Open a throwaway write session so the schema's classes have at
		// least one committed object model round-trip behind them before
		// any client connects.
		txn, err := eng.CreateTransaction(context.Background(), engine.ReadWrite)
		if err != nil {
			return fmt.Errorf("failed to open warm-up transaction: %w", err)
		}
		sess := objectmodel.New(sch, txn, cfg)
		if err := sess.Commit(); err != nil {
			return fmt.Errorf("warm-up commit failed: %w", err)
		}
		logger.Info().Msg("object model session warmed up")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("data-dir", "./veloxdb-data", "Data directory for the bbolt-backed engine")
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the health/ready/metrics HTTP server")
	serveCmd.Flags().String("schema", "", "Path to a class schema YAML file (defaults to the embedded demo schema)")
}

func loadSchema(path string) (*schema.Schema, error) {
	if path != "" {
		return schema.LoadFile(path)
	}
	data, err := embeddedFS.ReadFile("schema.yaml")
	if err != nil {
		return nil, err
	}
	return schema.Load(data)
}

// cityIndexSpecs declares a sorted index over City.Population, demonstrating
// how a caller wires boltengine.IndexSpec KeyOf closures from schema property offsets; the
// schema package itself has no notion of declared indexes.
func cityIndexSpecs(sch *schema.Schema) ([]boltengine.IndexSpec, error) {
	cd, ok := sch.Class("City")
	if !ok {
		return nil, nil
	}
	pop, ok := cd.PropertyByName("Population")
	if !ok {
		return nil, nil
	}
	offset := pop.Offset
	keyOf := func(buf []byte) []byte {
		v := recordbuf.ReadInt64(recordbuf.Buffer(buf), offset)
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, uint64(v)^(1<<63))
		return key
	}
	return []boltengine.IndexSpec{
		{ClassID: cd.ClassID, Name: "by_population", Sorted: true, KeyOf: keyOf},
	}, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Back up a veloxdb.db file before a schema change",
	Long: `migrate is a placeholder for schema-evolution tooling: today it only
takes a safety backup of the bbolt file so a future version can add real
class-rename/property-add transforms against it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		dbPath := dataDir + "/veloxdb.db"

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database not found at %s", dbPath)
		}

		backupPath := dbPath + ".backup-" + time.Now().UTC().Format("20060102150405")
		data, err := os.ReadFile(dbPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write backup: %w", err)
		}

		fmt.Printf("Backed up %s to %s\n", dbPath, backupPath)
		fmt.Println("No schema transform registered; nothing else to do.")
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("data-dir", "./veloxdb-data", "Data directory containing veloxdb.db")
}
