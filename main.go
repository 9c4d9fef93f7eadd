// This package contains the main function that executes the privora command.
package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/privora/privora-go/internal/privora"
	"github.com/privora/privora-go/internal/submitter"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var startupMessage = `
Privora development node started at http://localhost:HTTP_PORT
Submit endpoint running at http://localhost:HTTP_PORT/submit
Press Ctrl+C to stop the node
`

var cmd = &cobra.Command{
	Use:     "privora [flags]",
	Short:   "privora is a development node and client for the Privora proof API",
	Run:     run,
	Version: versioninfo.Short(),
}

var CompletionCmd = &cobra.Command{
	Use:                   "completion",
	Short:                 "Generate shell completion scripts",
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cobra.CheckErr(cmd.Root().GenBashCompletion(os.Stdout))
		case "zsh":
			cobra.CheckErr(cmd.Root().GenZshCompletion(os.Stdout))
		case "fish":
			cobra.CheckErr(cmd.Root().GenFishCompletion(os.Stdout, true))
		case "powershell":
			cobra.CheckErr(cmd.Root().GenPowerShellCompletion(os.Stdout))
		}
	},
}

type SubmitOpts struct {
	Payload     string
	PayloadPath string
	ApiUrl      string
	Query       string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a proof to the Privora API",
	Long:  "Submit a JSON payload to the Privora API and print the response",
}

var (
	debug bool
	color bool
	opts  = privora.NewPrivoraOpts()
)

func addSubmitSubcommands(submitCmd *cobra.Command) {
	submitOpts := &SubmitOpts{}

	submitProofCmd := &cobra.Command{
		Use:   "proof",
		Short: "Submit a proof payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			content := []byte(submitOpts.Payload)
			if submitOpts.PayloadPath != "" {
				fileContent, err := os.ReadFile(submitOpts.PayloadPath)
				if err != nil {
					return err
				}
				content = fileContent
			}
			var payload any
			if err := json.Unmarshal(content, &payload); err != nil {
				return fmt.Errorf("payload is not valid JSON: %w", err)
			}

			client := submitter.NewClientFromEnv()
			if submitOpts.ApiUrl != "" {
				client = submitter.NewClient(submitOpts.ApiUrl)
			}
			slog.Info("Submitting proof", "url", client.BaseUrl)

			response, err := client.SubmitProof(ctx, payload)
			if err != nil {
				slog.Error("Submit", "error", err)
				return err
			}

			encoded, err := json.MarshalIndent(response, "", "  ")
			if err != nil {
				return err
			}
			if submitOpts.Query != "" {
				result := gjson.GetBytes(encoded, submitOpts.Query)
				fmt.Println(result.String())
				return nil
			}
			fmt.Println(string(encoded))
			return nil
		},
	}
	submitProofCmd.Flags().StringVar(&submitOpts.Payload, "payload", "",
		"Inline JSON payload to submit")
	submitProofCmd.Flags().StringVar(&submitOpts.PayloadPath, "file", "",
		"File with the JSON payload to submit")
	submitProofCmd.Flags().StringVar(&submitOpts.ApiUrl, "api-url", "",
		"If set, submits to this url instead of PRIVORA_API")
	submitProofCmd.Flags().StringVar(&submitOpts.Query, "query", "",
		"If set, prints only this field of the response. Example: --query id")
	submitProofCmd.MarkFlagsOneRequired("payload", "file")
	submitProofCmd.MarkFlagsMutuallyExclusive("payload", "file")
	cobra.CheckErr(submitProofCmd.MarkFlagFilename("file"))
	submitCmd.AddCommand(submitProofCmd)
}

func init() {
	// http-*
	cmd.Flags().StringVar(&opts.HttpAddress, "http-address", opts.HttpAddress,
		"HTTP address used by privora to serve its API")
	cmd.Flags().IntVar(&opts.HttpPort, "http-port", opts.HttpPort,
		"HTTP port used by privora to serve its API")

	// enable-*
	cmd.Flags().BoolVarP(&debug, "enable-debug", "d", false, "If set, enable debug output")
	cmd.Flags().BoolVar(&color, "enable-color", true, "If set, enables logs color")

	cmd.Flags().DurationVar(&opts.TimeoutWorker, "timeout-worker", opts.TimeoutWorker,
		"Timeout for workers. Example: privora --timeout-worker 30s")

	// database file
	cmd.Flags().StringVar(&opts.SqliteFile, "sqlite-file", opts.SqliteFile,
		"The sqlite file to load the state. If unset, uses an in-memory db")
}

func run(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	startTime := time.Now()

	// setup log
	logOpts := new(tint.Options)
	if debug {
		logOpts.Level = slog.LevelDebug
	}
	logOpts.AddSource = debug
	logOpts.NoColor = !color || !isatty.IsTerminal(os.Stdout.Fd())
	logOpts.TimeFormat = "[15:04:05.000]"
	handler := tint.NewHandler(os.Stdout, logOpts)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// check args
	if opts.HttpPort == 0 {
		exitf("--http-port cannot be 0")
	}

	// handle signals with notify context
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// start privora
	ready := make(chan struct{}, 1)
	go func() {
		select {
		case <-ready:
			msg := strings.Replace(
				startupMessage,
				"HTTP_PORT",
				fmt.Sprint(opts.HttpPort), -1)
			fmt.Println(msg)
			slog.Info("privora: ready", "after", time.Since(startTime))
		case <-ctx.Done():
		}
	}()
	LoadEnv()
	err := privora.NewSupervisor(opts).Start(ctx, ready)
	cobra.CheckErr(err)
}

//go:embed .env
var envBuilded string

// LoadEnv from embedded .env file
func LoadEnv() {
	currentEnv := map[string]bool{}
	rawEnv := os.Environ()
	for _, rawEnvLine := range rawEnv {
		key := strings.Split(rawEnvLine, "=")[0]
		currentEnv[key] = true
	}

	parse, err := godotenv.Unmarshal(envBuilded)
	cobra.CheckErr(err)

	for k, v := range parse {
		if !currentEnv[k] {
			slog.Debug("env: setting env", "key", k, "value", v)
			err := os.Setenv(k, v)
			cobra.CheckErr(err)
		} else {
			slog.Debug("env: skipping env", "key", k)
		}
	}

	slog.Debug("env: loaded")
}

func main() {
	addSubmitSubcommands(submitCmd)
	cmd.AddCommand(CompletionCmd, submitCmd)
	cobra.CheckErr(cmd.Execute())
}

func exitf(format string, args ...any) {
	err := fmt.Sprintf(format, args...)
	slog.Error("configuration error", "error", err)
	os.Exit(1)
}
