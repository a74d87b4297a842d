// Groth16 key setup for RangeCommitmentCircuit.
// Generates the proving and verifying keys cmd/blobstream0 loads at
// startup when DEV_MODE is not set. Run once per deployment, offline,
// and distribute the verifying key to whoever deploys the settlement
// contract; keep the proving key private to the instance that will run
// the bridge service.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/certen/blobstream0/pkg/prover"
)

func main() {
	outDir := flag.String("out", "./proving-keys", "directory to write circuit.ccs, proving.key and verifying.key into")
	flag.Parse()

	if err := run(*outDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := prover.New(false, 1)

	fmt.Println("compiling circuit and running Groth16 trusted setup...")
	if err := p.Setup(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	ccsPath := filepath.Join(outDir, "circuit.ccs")
	pkPath := filepath.Join(outDir, "proving.key")
	vkPath := filepath.Join(outDir, "verifying.key")

	if err := p.SaveKeys(ccsPath, pkPath, vkPath); err != nil {
		return fmt.Errorf("save keys: %w", err)
	}

	fmt.Printf("wrote %s\n", ccsPath)
	fmt.Printf("wrote %s\n", pkPath)
	fmt.Printf("wrote %s\n", vkPath)
	return nil
}
