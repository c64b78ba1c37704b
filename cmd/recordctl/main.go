// Command recordctl runs record operations against the configured store.
//
// Usage:
//
//	recordctl [-config file] <command> <model> [args]
//
// Commands:
//
//	create  <model> <record-json|->   create one record, or an array of records
//	get     <model> <id>              find a record by identifier
//	find    <model> [filter-json]     find records, e.g. {"where":{"age":24},"limit":10}
//	update  <model> <id> <patch-json> merge attributes into a record
//	destroy <model> <id>              remove a record by identifier
//	remove  <model> [where-json]      remove matching records
//	count   <model> [where-json]      count matching records
//	models                            list models and their key layouts
//
// Results are printed as JSON. The exit status is 3 when get or update
// names a record that does not exist.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/suparena/recordstore"
	"github.com/suparena/recordstore/config"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/storagemodels"
)

type openFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*recordstore.Catalog, error)

func openCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*recordstore.Catalog, error) {
	return recordstore.Open(ctx, cfg, logger, nil)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, openCatalog))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, open openFunc) int {
	fs := flag.NewFlagSet("recordctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "Path to the YAML configuration file")
	versionFlag := fs.Bool("version", false, "Show version information")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *versionFlag {
		info := recordstore.GetVersionInfo()
		fmt.Fprintf(stdout, "recordctl version %s\n", info.Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(stdout, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return 0
	}
	if fs.NArg() == 0 {
		printUsage(stderr)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	logger, err := cfg.Log.NewLogger(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	cat, err := open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()

	result, err := dispatch(ctx, cat, fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		if errors.IsNotFound(err) {
			return 3
		}
		if _, partial := errors.AsBatchError(err); !partial {
			return 1
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		fmt.Fprintf(stderr, "error: %v\n", encErr)
		return 1
	}
	if err != nil {
		return 1
	}
	return 0
}

// dispatch runs one command. A partial bulk create returns both a result
// and an error.
func dispatch(ctx context.Context, cat *recordstore.Catalog, args []string, stdin io.Reader) (any, error) {
	cmd, args := args[0], args[1:]
	if cmd == "models" {
		return listModels(cat)
	}
	if cmd == "help" {
		return nil, fmt.Errorf("usage: recordctl [-config file] <command> <model> [args]")
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("%s: model name is required", cmd)
	}
	repo, err := cat.Model(args[0])
	if err != nil {
		return nil, err
	}
	args = args[1:]

	switch cmd {
	case "create":
		data, err := argOrStdin(args, stdin)
		if err != nil {
			return nil, err
		}
		if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
			var recs []storagemodels.Record
			if err := json.Unmarshal(data, &recs); err != nil {
				return nil, fmt.Errorf("create: malformed records: %w", err)
			}
			return repo.CreateAll(ctx, recs)
		}
		var rec storagemodels.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("create: malformed record: %w", err)
		}
		return repo.Create(ctx, rec)

	case "get":
		if len(args) != 1 {
			return nil, fmt.Errorf("get: expected an identifier")
		}
		rec, err := repo.FindByID(ctx, args[0])
		return found(repo.Name(), args[0], rec, err)

	case "find":
		f, err := storagemodels.ParseFilter([]byte(optionalArg(args)))
		if err != nil {
			return nil, err
		}
		return repo.Find(ctx, f)

	case "update":
		if len(args) != 2 {
			return nil, fmt.Errorf("update: expected an identifier and a patch")
		}
		var patch storagemodels.Record
		if err := json.Unmarshal([]byte(args[1]), &patch); err != nil {
			return nil, fmt.Errorf("update: malformed patch: %w", err)
		}
		rec, err := repo.UpdateAttributes(ctx, args[0], patch)
		return found(repo.Name(), args[0], rec, err)

	case "destroy":
		if len(args) != 1 {
			return nil, fmt.Errorf("destroy: expected an identifier")
		}
		return repo.DestroyByID(ctx, args[0])

	case "remove":
		w, err := storagemodels.ParseWhere([]byte(optionalArg(args)))
		if err != nil {
			return nil, err
		}
		return repo.Remove(ctx, w)

	case "count":
		w, err := storagemodels.ParseWhere([]byte(optionalArg(args)))
		if err != nil {
			return nil, err
		}
		n, err := repo.Count(ctx, w)
		if err != nil {
			return nil, err
		}
		return storagemodels.Result{Count: n}, nil

	default:
		return nil, fmt.Errorf("unknown command: %s", cmd)
	}
}

type modelInfo struct {
	Name    string            `json:"name"`
	IDField string            `json:"idField"`
	Fields  []string          `json:"fields"`
	Keys    map[string]string `json:"keys"`
}

func listModels(cat *recordstore.Catalog) ([]modelInfo, error) {
	out := []modelInfo{}
	for _, name := range cat.Models() {
		repo, err := cat.Model(name)
		if err != nil {
			return nil, err
		}
		s := repo.Schema()
		out = append(out, modelInfo{
			Name:    name,
			IDField: s.IDField(),
			Fields:  s.Names(),
			Keys:    cat.IndexMap(name),
		})
	}
	return out, nil
}

func argOrStdin(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	return []byte(args[0]), nil
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage:
  recordctl [-config file] <command> <model> [args]

Commands:
  create  <model> <record-json|->    Create one record, or an array of records
  get     <model> <id>               Find a record by identifier
  find    <model> [filter-json]      Find records
  update  <model> <id> <patch-json>  Merge attributes into a record
  destroy <model> <id>               Remove a record by identifier
  remove  <model> [where-json]       Remove matching records
  count   <model> [where-json]       Count matching records
  models                             List models and their key layouts

Flags:
  -config    Path to the YAML configuration file (env RECORDSTORE_CONFIG)
  -version   Show version information
`)
}

// found turns an absent record into a NotFoundError.
func found(model, id string, rec storagemodels.Record, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.NewNotFoundError(model, id)
	}
	return rec, nil
}
