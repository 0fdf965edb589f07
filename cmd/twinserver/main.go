// The twinserver command runs the confidential telemetry twin: blob-backed
// ciphertext storage, the encrypted record ledger, and a local decryption
// oracle wired through the callback path.
package main

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/cmd/flags"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/httpserver"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/oracle"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/storage"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/twin"
)

func main() {
	app := &cli.App{
		Name:  "twinserver",
		Usage: "Serve the confidential telemetry twin API",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.StorageFlag,
			flags.OracleKeyFlag,
			flags.OracleSignerFlag,
			flags.EvaluatorSeedFlag,
			flags.AutoResolveFlag,
			flags.LogServiceFlagFn("twinserver"),
		}, flags.CommonFlags...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	storageFactory := storage.NewBackendFactory(logger)
	blobs, err := storageFactory.CreateMultiBackend(cCtx.StringSlice(flags.StorageFlag.Name))
	if err != nil {
		logger.Error("Failed to create blob store", "err", err)
		return err
	}
	logger.Info("Blob store configured", "location", blobs.LocationURI())

	evaluator, err := setupEvaluator(cCtx.String(flags.EvaluatorSeedFlag.Name))
	if err != nil {
		logger.Error("Failed to create evaluator", "err", err)
		return err
	}

	oracleKey, err := setupOracleKey(cCtx.String(flags.OracleKeyFlag.Name))
	if err != nil {
		logger.Error("Failed to set up oracle key", "err", err)
		return err
	}

	localOracle := oracle.NewLocalOracle(oracleKey, evaluator, blobs, logger)

	signerHex := cCtx.String(flags.OracleSignerFlag.Name)
	if signerHex == "" {
		signerHex = localOracle.SignerAddress().Hex()
	}
	verifier, err := oracle.NewVerifierFromHex(signerHex)
	if err != nil {
		logger.Error("Invalid oracle signer address", "err", err)
		return err
	}
	logger.Info("Trusting oracle signer", "address", signerHex)

	ledger, err := twin.NewLedger(twin.Config{
		Oracle:    localOracle,
		Verifier:  verifier,
		Evaluator: evaluator,
		Log:       logger,
	})
	if err != nil {
		logger.Error("Failed to create ledger", "err", err)
		return err
	}

	localOracle.SetCallbackSink(ledger)
	localOracle.SetAutoResolve(cCtx.Bool(flags.AutoResolveFlag.Name))

	handler := httpserver.NewHandler(ledger, blobs, logger)

	cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
	server, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting server")
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

func setupEvaluator(seedHex string) (*oracle.Evaluator, error) {
	var seed []byte
	if seedHex == "" {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return nil, fmt.Errorf("failed to generate evaluator seed: %w", err)
		}
	} else {
		var err error
		seed, err = hex.DecodeString(seedHex)
		if err != nil {
			return nil, fmt.Errorf("invalid evaluator-seed: %w", err)
		}
	}

	return oracle.NewEvaluator(seed)
}

func setupOracleKey(keyHex string) (*ecdsa.PrivateKey, error) {
	if keyHex == "" {
		return crypto.GenerateKey()
	}
	return crypto.HexToECDSA(keyHex)
}
