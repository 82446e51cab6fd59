package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/zhouzirui/coach-studio/backend/internal/config"
	"github.com/zhouzirui/coach-studio/backend/internal/model/persona"
	"github.com/zhouzirui/coach-studio/backend/internal/service/ai"
	chatService "github.com/zhouzirui/coach-studio/backend/internal/service/chat"
	"github.com/zhouzirui/coach-studio/backend/internal/service/dataset"
)

var chatOpts struct {
	preset      string
	domain      string
	dataset     string
	temperature float64
	roleFile    string
	exportDir   string
	build       bool
}

// chatCmd runs the interactive workspace
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat workspace",
	Long: `Start an interactive chat workspace for a coach preset.

Plain lines are sent to the chatbot. Lines starting with "/" are commands:
  /role <text>     replace the role definition
  /temp <value>    set the temperature (0.0 - 1.0)
  /domain <name>   select the coach specialty
  /dataset <name>  select the dataset
  /rebuild         rebuild the chatbot with the current settings
  /state           show the current settings and build state
  /export [name]   write the transcript to <name>.json
  /quit            leave

Ctrl-C while a reply is pending cancels that call only.`,
	RunE: runChat,
}

func init() {
	f := chatCmd.Flags()
	f.StringVar(&chatOpts.preset, "preset", persona.PresetGeneral, "Preset id (see 'coachcli presets')")
	f.StringVar(&chatOpts.domain, "domain", "", "Coach specialty, e.g. Sleep")
	f.StringVar(&chatOpts.dataset, "dataset", "", "Dataset selector")
	f.Float64Var(&chatOpts.temperature, "temperature", 0.2, "Sampling temperature")
	f.StringVar(&chatOpts.roleFile, "role-file", "", "Read the role definition from a file")
	f.StringVar(&chatOpts.exportDir, "export-dir", "", "Directory for /export (default $EXPORT_DIR)")
	f.BoolVar(&chatOpts.build, "build", true, "Build the chatbot before the first prompt")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = cfg.Log.NewLogger(); err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
	}

	catalog, err := persona.LoadCatalog(cfg.Data.CatalogPath)
	if err != nil {
		return err
	}

	completer, err := ai.NewCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("completion service: %w", err)
	}

	svc := chatService.NewService(chatService.Deps{
		Catalog:     catalog,
		Datasets:    dataset.NewDirProvider(cfg.Data.DatasetDir, logger),
		Completer:   completer,
		Logger:      logger,
		SendTimeout: cfg.LLM.Timeout,
	})

	ws, err := svc.CreateWorkspace(ctx, chatOpts.preset)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, ws); err != nil {
		return err
	}

	exportDir := chatOpts.exportDir
	if exportDir == "" {
		exportDir = cfg.Data.ExportDir
	}

	r := &repl{
		ws:          ws,
		sink:        chatService.FileSink{Dir: exportDir},
		out:         cmd.OutOrStdout(),
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	if chatOpts.build {
		r.rebuild(ctx)
	}
	return r.run(ctx, cmd.InOrStdin())
}

func applyFlags(cmd *cobra.Command, ws *chatService.Workspace) error {
	flags := cmd.Flags()
	if chatOpts.roleFile != "" {
		role, err := os.ReadFile(chatOpts.roleFile)
		if err != nil {
			return err
		}
		ws.SetRole(string(role))
	}
	if flags.Changed("temperature") {
		if err := ws.SetTemperature(chatOpts.temperature); err != nil {
			return err
		}
	}
	if chatOpts.domain != "" {
		if err := ws.SelectDomain(chatOpts.domain); err != nil {
			return err
		}
	}
	if chatOpts.dataset != "" {
		ws.SelectDataset(chatOpts.dataset)
	}
	return nil
}

type repl struct {
	ws          *chatService.Workspace
	sink        chatService.Sink
	out         io.Writer
	interactive bool
}

var errQuit = errors.New("quit")

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if r.interactive {
			fmt.Fprint(r.out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := r.handle(ctx, scanner.Text()); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		r.send(ctx, line)
		return nil
	}

	command, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/quit", "/exit":
		return errQuit
	case "/role":
		if arg == "" {
			fmt.Fprintln(r.out, r.ws.Snapshot().Config.RoleDefinition)
			return nil
		}
		r.ws.SetRole(arg)
		r.printWarning()
	case "/temp":
		value, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			fmt.Fprintf(r.out, "error: invalid temperature %q\n", arg)
			return nil
		}
		if err := r.ws.SetTemperature(value); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return nil
		}
		r.printWarning()
	case "/domain":
		if err := r.ws.SelectDomain(arg); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return nil
		}
		r.printWarning()
	case "/dataset":
		r.ws.SelectDataset(arg)
		r.printWarning()
	case "/rebuild":
		r.rebuild(ctx)
	case "/state":
		r.printState()
	case "/export":
		r.export(ctx, arg)
	default:
		fmt.Fprintf(r.out, "unknown command %s\n", command)
	}
	return nil
}

// callContext lets Ctrl-C cancel the pending call without ending the session.
func (r *repl) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.interactive {
		return signal.NotifyContext(ctx, os.Interrupt)
	}
	return context.WithCancel(ctx)
}

func (r *repl) send(ctx context.Context, text string) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	reply, err := r.ws.Send(callCtx, text)
	if err != nil {
		if errors.Is(err, chatService.ErrNotBuilt) {
			fmt.Fprintln(r.out, "Please build the chatbot first.")
			return
		}
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "%s: %s\n", reply.Role, reply.Content)
	r.printWarning()
}

func (r *repl) rebuild(ctx context.Context) {
	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	snap, err := r.ws.Rebuild(callCtx)
	if err != nil && !errors.Is(err, chatService.ErrSeedFailed) {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, "Chatbot rebuilt.")
	for _, msg := range snap.Messages {
		fmt.Fprintf(r.out, "%s: %s\n", msg.Role, msg.Content)
	}
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
	}
}

func (r *repl) export(ctx context.Context, name string) {
	data, err := r.ws.Export()
	if err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	filename := chatService.ExportFilename(name)
	if err := r.sink.Write(ctx, filename, data); err != nil {
		fmt.Fprintf(r.out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Exported %s\n", filename)
}

func (r *repl) printState() {
	snap := r.ws.Snapshot()
	fmt.Fprintf(r.out, "preset:      %s\n", snap.PresetID)
	fmt.Fprintf(r.out, "temperature: %.2f\n", snap.Config.Temperature)
	if snap.Config.Domain != "" {
		fmt.Fprintf(r.out, "domain:      %s\n", snap.Config.Domain)
	}
	if snap.Config.Dataset != "" {
		fmt.Fprintf(r.out, "dataset:     %s\n", snap.Config.Dataset)
	}
	fmt.Fprintf(r.out, "built:       %t\n", snap.Built)
	fmt.Fprintf(r.out, "state:       %s\n", snap.State)
	fmt.Fprintf(r.out, "messages:    %d\n", len(snap.Messages))
	r.printWarning()
}

func (r *repl) printWarning() {
	if warning := r.ws.Snapshot().Warning; warning != "" {
		fmt.Fprintln(r.out, warning)
	}
}
