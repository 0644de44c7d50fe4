// Command fragstore is a CLI over the fragment store: it saves, lists,
// retrieves (optionally converted), updates and deletes fragments against
// the backend described by the configuration.
//
// The owner is passed explicitly with -owner; identity verification belongs
// to whatever front-end embeds the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/fragstore/fragstore/internal/logger"
	"github.com/fragstore/fragstore/pkg/config"
	"github.com/fragstore/fragstore/pkg/convert"
	"github.com/fragstore/fragstore/pkg/fragment"
	"github.com/fragstore/fragstore/pkg/store"
	"github.com/fragstore/fragstore/pkg/store/durable"
)

const usage = `Usage: fragstore [-config path] <command> [flags] [args]

Commands:
  save      -owner O -type T [file]   store a new fragment (payload from file or stdin)
  get       -owner O <id>[.ext]       print a fragment payload, converted per extension
  info      -owner O <id>             print fragment metadata
  list      -owner O [-expand]        list an owner's fragments
  update    -owner O -type T <id> [file]
  delete    -owner O <id>
  reconcile                           sweep orphaned blobs (durable backend)
  types                               print the supported media types
`

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fragstore: %v\n", err)
		os.Exit(1)
	}
	if err := config.ConfigureLogging(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "fragstore: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backend, err := config.CreateBackend(ctx, &cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fragstore: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, backend, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fragstore: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, backend store.Backend, command string, args []string) error {
	switch command {
	case "save":
		return runSave(ctx, backend, args)
	case "get":
		return runGet(ctx, backend, args)
	case "info":
		return runInfo(ctx, backend, args)
	case "list":
		return runList(ctx, backend, args)
	case "update":
		return runUpdate(ctx, backend, args)
	case "delete":
		return runDelete(ctx, backend, args)
	case "reconcile":
		return runReconcile(ctx, backend)
	case "types":
		return runTypes()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// readPayload reads the payload from the named file, or stdin when no file
// argument is given.
func readPayload(args []string) ([]byte, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload from stdin: %w", err)
	}
	return data, nil
}

func runSave(ctx context.Context, backend store.Backend, args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id (required)")
	mediaType := fs.String("type", "", "Media type of the payload (required)")
	_ = fs.Parse(args)

	if *owner == "" || *mediaType == "" {
		return fmt.Errorf("save: -owner and -type are required")
	}

	data, err := readPayload(fs.Args())
	if err != nil {
		return err
	}

	f, err := fragment.New(backend, *owner, *mediaType, data)
	if err != nil {
		return err
	}
	if err := f.Save(ctx); err != nil {
		return err
	}

	logger.Info("saved fragment %s (%s, %d bytes)", f.ID, f.Type, f.Size)
	fmt.Println(f.ID)
	return nil
}

// splitIDArg splits a trailing conversion extension off an id argument.
func splitIDArg(arg string) (id, ext string) {
	ext = filepath.Ext(arg)
	if ext == "" {
		return arg, ""
	}
	return strings.TrimSuffix(arg, ext), ext
}

func runGet(ctx context.Context, backend store.Backend, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id (required)")
	_ = fs.Parse(args)

	if *owner == "" || fs.NArg() != 1 {
		return fmt.Errorf("get: -owner and exactly one <id>[.ext] argument are required")
	}

	id, ext := splitIDArg(fs.Arg(0))

	f, err := fragment.ByID(ctx, backend, *owner, id)
	if err != nil {
		return err
	}
	data, err := f.Data(ctx)
	if err != nil {
		return err
	}

	if ext != "" {
		target, ok := convert.ExtensionToMimeType(ext)
		if !ok {
			return fmt.Errorf("unknown extension %q", ext)
		}
		if data, err = convert.Convert(data, f.Type, target); err != nil {
			return err
		}
	}

	_, err = os.Stdout.Write(data)
	return err
}

func runInfo(ctx context.Context, backend store.Backend, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id (required)")
	_ = fs.Parse(args)

	if *owner == "" || fs.NArg() != 1 {
		return fmt.Errorf("info: -owner and exactly one <id> argument are required")
	}

	f, err := fragment.ByID(ctx, backend, *owner, fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("id:      %s\n", f.ID)
	fmt.Printf("type:    %s\n", f.Type)
	fmt.Printf("size:    %d\n", f.Size)
	fmt.Printf("created: %s\n", f.Created.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("updated: %s\n", f.Updated.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func runList(ctx context.Context, backend store.Backend, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id (required)")
	expand := fs.Bool("expand", false, "Include type and size")
	_ = fs.Parse(args)

	if *owner == "" {
		return fmt.Errorf("list: -owner is required")
	}

	fragments, err := fragment.ByUser(ctx, backend, *owner, *expand)
	if err != nil {
		return err
	}

	for _, f := range fragments {
		if *expand {
			fmt.Printf("%s\t%s\t%d\t%s\n", f.ID, f.Type, f.Size, f.Updated.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Printf("%s\t%s\n", f.ID, f.Updated.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func runUpdate(ctx context.Context, backend store.Backend, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id (required)")
	mediaType := fs.String("type", "", "Media type of the new payload (required)")
	_ = fs.Parse(args)

	if *owner == "" || *mediaType == "" || fs.NArg() < 1 {
		return fmt.Errorf("update: -owner, -type and an <id> argument are required")
	}

	f, err := fragment.ByID(ctx, backend, *owner, fs.Arg(0))
	if err != nil {
		return err
	}

	data, err := readPayload(fs.Args()[1:])
	if err != nil {
		return err
	}

	if err := f.Update(ctx, data, *mediaType); err != nil {
		return err
	}

	logger.Info("updated fragment %s (%s, %d bytes)", f.ID, f.Type, f.Size)
	return nil
}

func runDelete(ctx context.Context, backend store.Backend, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	owner := fs.String("owner", "", "Owner id (required)")
	_ = fs.Parse(args)

	if *owner == "" || fs.NArg() != 1 {
		return fmt.Errorf("delete: -owner and exactly one <id> argument are required")
	}

	deleted, err := fragment.Delete(ctx, backend, *owner, fs.Arg(0))
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("fragment %s not found", fs.Arg(0))
	}

	logger.Info("deleted fragment %s", fs.Arg(0))
	return nil
}

func runReconcile(ctx context.Context, backend store.Backend) error {
	type reconciler interface {
		Reconcile(context.Context) (durable.ReconcileResult, error)
	}

	r, ok := backend.(reconciler)
	if !ok {
		return fmt.Errorf("reconcile: the configured backend has no orphan sweep")
	}

	result, err := r.Reconcile(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d blobs, %d orphans, %d deleted\n",
		result.Scanned, result.Orphans, result.Deleted)
	return nil
}

func runTypes() error {
	types := fragment.SupportedTypes()
	sort.Strings(types)
	for _, mediaType := range types {
		fmt.Println(mediaType)
	}
	return nil
}
