package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goodtune/screenpledge/internal/screentime"
)

var callList bool

var callCmd = &cobra.Command{
	Use:   "call METHOD [ARGS_JSON]",
	Short: "Invoke a screen-time method",
	Long: `Invoke a named screen-time method with a JSON object of arguments and
print the JSON result. Failures are printed as {"code", "message"} on stderr.`,
	Example: `  screenpledge call getTotalDeviceUsage
  screenpledge call getUsageForApps '{"packageNames": ["com.example.game"]}'
  screenpledge call getUsageForDateRange '{"startTime": 1717200000000, "endTime": 1717545600000}'`,
	Args: func(cmd *cobra.Command, args []string) error {
		if callList {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.RangeArgs(1, 2)(cmd, args)
	},
	RunE: runCall,
}

func init() {
	callCmd.Flags().BoolVar(&callList, "list", false, "List supported methods")
	rootCmd.AddCommand(callCmd)
}

type callFailure struct {
	Code    screentime.Kind `json:"code"`
	Message string          `json:"message"`
}

func runCall(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if callList {
		for _, method := range a.dispatcher.Methods() {
			fmt.Println(method)
		}
		return nil
	}

	callArgs := screentime.Args{}
	if len(args) == 2 {
		dec := json.NewDecoder(strings.NewReader(args[1]))
		dec.UseNumber()
		if err := dec.Decode(&callArgs); err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
	}

	result, err := a.dispatcher.Call(context.Background(), args[0], callArgs)
	if err != nil {
		failure := callFailure{Code: screentime.KindOf(err), Message: err.Error()}
		var callErr *screentime.Error
		if errors.As(err, &callErr) {
			failure.Message = callErr.Message
		}
		enc := json.NewEncoder(os.Stderr)
		_ = enc.Encode(failure)
		cmd.SilenceErrors = true
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
