// The oracleclient command signs a decryption result and delivers it to a
// twinserver as an oracle callback. It stands in for an external decryption
// service when the server runs with --auto-resolve=false.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/cmd/flags"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/httpserver"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/oracle"
)

var serverAddrFlag = &cli.StringFlag{
	Name:  "server-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "base URL of the twinserver",
}

var oracleKeyFlag = &cli.StringFlag{
	Name:     "oracle-key",
	Required: true,
	Usage:    "hex-encoded secp256k1 private key the server trusts",
}

var requestIDFlag = &cli.Uint64Flag{
	Name:     "request-id",
	Required: true,
	Usage:    "decryption request ID being answered",
}

var handleFlag = &cli.StringSliceFlag{
	Name:     "handle",
	Required: true,
	Usage:    "ciphertext handle of the request, as capability:hexid or plain hex; repeat in request order",
}

var cleartextFlag = &cli.StringSliceFlag{
	Name:     "cleartext",
	Required: true,
	Usage:    "decrypted value; repeat in request order",
}

func main() {
	app := &cli.App{
		Name:  "oracleclient",
		Usage: "Sign and deliver a decryption callback to a twinserver",
		Flags: append([]cli.Flag{
			serverAddrFlag,
			oracleKeyFlag,
			requestIDFlag,
			handleFlag,
			cleartextFlag,
			flags.LogServiceFlagFn("oracleclient"),
		}, flags.CommonFlags...),
		Action: runCallback,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCallback(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	key, err := crypto.HexToECDSA(cCtx.String(oracleKeyFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid oracle-key: %w", err)
	}

	requestID := interfaces.RequestID(cCtx.Uint64(requestIDFlag.Name))
	cleartexts := cCtx.StringSlice(cleartextFlag.Name)

	ciphertexts, err := parseHandles(cCtx.StringSlice(handleFlag.Name))
	if err != nil {
		return err
	}

	digest, err := oracle.ProofDigest(requestID, ciphertexts, cleartexts)
	if err != nil {
		return fmt.Errorf("failed to compute proof digest: %w", err)
	}

	proof, err := crypto.Sign(digest[:], key)
	if err != nil {
		return fmt.Errorf("failed to sign proof: %w", err)
	}

	payload, err := json.Marshal(httpserver.OracleCallbackRequest{
		RequestID:  uint64(requestID),
		Cleartexts: cleartexts,
		Proof:      hex.EncodeToString(proof),
	})
	if err != nil {
		return err
	}

	url := strings.TrimSuffix(cCtx.String(serverAddrFlag.Name), "/") + "/api/oracle/callback"
	logger.Info("Delivering callback", "url", url, "requestID", uint64(requestID))

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("callback delivery failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server rejected callback: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	logger.Info("Callback accepted", "response", strings.TrimSpace(string(body)))
	return nil
}

// parseHandles accepts handles as printed by the server, capability:hexid,
// or as plain hex IDs. The capability does not participate in the proof
// digest, so a missing tag defaults to euint64.
func parseHandles(raw []string) ([]interfaces.CiphertextHandle, error) {
	handles := make([]interfaces.CiphertextHandle, len(raw))
	for i, s := range raw {
		capability := interfaces.CapEncUint64
		idHex := s

		if prefix, rest, found := strings.Cut(s, ":"); found {
			parsed, err := interfaces.CapabilityFromString(prefix)
			if err != nil {
				return nil, fmt.Errorf("invalid handle %q: %w", s, err)
			}
			capability = parsed
			idHex = rest
		}

		id, err := interfaces.NewHandleIDFromHex(idHex)
		if err != nil {
			return nil, fmt.Errorf("invalid handle %q: %w", s, err)
		}

		handles[i] = interfaces.CiphertextHandle{ID: id, Cap: capability}
	}
	return handles, nil
}
