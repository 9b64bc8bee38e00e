package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"percolator_go/internal/engine"
	"percolator_go/internal/infra/solana"
	"percolator_go/internal/state"
	"percolator_go/internal/storage"
)

func (c *cli) decodeCmd() *cobra.Command {
	var (
		file    string
		hexData string
		b64Data string
		address string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode an engine-state account",
		Long: `Decode an engine-state account from a file (- for stdin), a hex or base64
string, or a cluster address. With no source the configured
program.engine_state_address is fetched.`,
		Example: `  percolator decode --file state.bin
  percolator decode --address <ENGINE_STATE> --layout v2 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := 0
			for _, s := range []string{file, hexData, b64Data, address} {
				if s != "" {
					sources++
				}
			}
			if sources > 1 {
				return errors.New("use only one of --file, --hex, --base64, --address")
			}

			var raw []byte
			var err error
			switch {
			case file != "":
				raw, err = readFile(file, cmd.InOrStdin())
			case hexData != "":
				raw, err = hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexData), "0x"))
			case b64Data != "":
				raw, err = base64.StdEncoding.DecodeString(strings.TrimSpace(b64Data))
			default:
				return c.decodeRemote(cmd, address, save)
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			rec, err := state.DecodeErr(raw, c.boot.Layout)
			if err != nil {
				return fmt.Errorf("%w: %w", engine.ErrInvalidState, err)
			}
			return c.printState(stateView{Layout: c.boot.Layout.Name, Record: rec})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "raw account bytes (- for stdin)")
	f.StringVar(&hexData, "hex", "", "account bytes as hex")
	f.StringVar(&b64Data, "base64", "", "account bytes as base64")
	f.StringVarP(&address, "address", "a", "", "engine-state account address")
	f.BoolVar(&save, "save", false, "record the fetched snapshot in the history database")
	return cmd
}

func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func (c *cli) decodeRemote(cmd *cobra.Command, address string, save bool) error {
	addr, err := c.resolveStateAddress(cmd.Context(), address)
	if err != nil {
		return err
	}
	client, err := c.boot.Client()
	if err != nil {
		return err
	}

	res, rec, err := engine.LoadState(cmd.Context(), client, addr, c.boot.Layout)
	if errors.Is(err, solana.ErrAccountNotFound) {
		return fmt.Errorf("account not found or no data: %s", addr)
	}
	if err != nil {
		return err
	}

	if save {
		store, err := c.boot.OpenStore()
		if err != nil {
			return err
		}
		snap := storage.Snapshot{Address: addr.String(), Slot: res.Slot, Layout: c.boot.Layout.Name, Record: rec, Raw: res.Data}
		if _, err := store.SaveSnapshot(cmd.Context(), &snap); err != nil {
			return err
		}
	}
	return c.printState(c.viewFor(addr, res.Slot, rec))
}

// resolveStateAddress prefers the flag, then config, then the address a
// previous find recorded for the configured program.
func (c *cli) resolveStateAddress(ctx context.Context, flag string) (solana.Address, error) {
	if flag != "" {
		return solana.ParseAddress(flag)
	}
	addr, ok, err := c.boot.StateAddress()
	if err != nil || ok {
		return addr, err
	}

	if found, err := c.recordedStateAddress(ctx); err != nil {
		slog.Warn("STATE_ADDRESS_LOOKUP_FAILED", slog.Any("error", err))
	} else if found != "" {
		slog.Info("Using state address recorded by find", slog.String("address", found))
		return solana.ParseAddress(found)
	}
	return solana.Address{}, errors.New("no engine-state address: pass --address, set program.engine_state_address, or run find")
}

// recordedStateAddress reads the address find stored for the configured
// program; "" when none was recorded.
func (c *cli) recordedStateAddress(ctx context.Context) (string, error) {
	prog, err := c.boot.ProgramAddress()
	if err != nil {
		return "", err
	}
	store, err := c.boot.OpenStore()
	if err != nil {
		return "", err
	}
	found, err := store.GetMetadata(ctx, stateAddressKey(prog))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", stateAddressKey(prog), err)
	}
	return found, nil
}

func stateAddressKey(program solana.Address) string {
	return "state_address:" + program.String()
}
