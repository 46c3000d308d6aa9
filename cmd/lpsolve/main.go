// Command lpsolve solves a linear program read from a YAML or JSON file and
// prints every tableau of the run.
//
//	lpsolve [-method dual] [-json] [-remote host:50051] problem.yaml
//
// A file name of "-" reads JSON from stdin.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/simplexviz/simplex-core/internal/solverd"
	"github.com/simplexviz/simplex-core/pkg/config"
	"github.com/simplexviz/simplex-core/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	var (
		configPath string
		method     string
		asJSON     bool
		remote     string
		maxIter    int
		logLevel   string
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file for solver defaults")
	flag.StringVar(&method, "method", "", "two-phase or dual, overrides the problem file")
	flag.BoolVar(&asJSON, "json", false, "print the raw JSON response")
	flag.StringVar(&remote, "remote", "", "solve on an lpsolverd gRPC address instead of locally")
	flag.IntVar(&maxIter, "max-iterations", 0, "pivot cap, overrides solver.max_iterations")
	flag.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stderr))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lpsolve [flags] <problem.yaml|problem.json|->")
		flag.PrintDefaults()
		os.Exit(2)
	}

	req, err := readRequest(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if method != "" {
		req.Method = method
	}

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.LoadConfig(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if maxIter > 0 {
		cfg.Solver.MaxIterations = maxIter
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp *solverd.SolveResponse
	if remote != "" {
		resp, err = solveRemote(ctx, remote, req)
	} else {
		resp, err = solveLocal(ctx, cfg, req)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "solve failed:", err)
		os.Exit(1)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	printResponse(os.Stdout, resp)
}

func readRequest(path string) (*solverd.SolveRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read problem %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return solverd.DecodeRequestYAML(data)
	default:
		return solverd.DecodeRequest(data)
	}
}

func solveLocal(ctx context.Context, cfg *config.Config, req *solverd.SolveRequest) (*solverd.SolveResponse, error) {
	svc, err := solverd.NewService(cfg.Solver, nil, nil)
	if err != nil {
		return nil, err
	}
	return svc.Solve(ctx, req)
}

func solveRemote(ctx context.Context, addr string, req *solverd.SolveRequest) (*solverd.SolveResponse, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	in, err := solverd.RequestStruct(req)
	if err != nil {
		return nil, err
	}
	out, err := solverd.NewSolverClient(conn).Solve(ctx, in)
	if err != nil {
		return nil, err
	}

	data, err := out.GetFields()["result"].GetStructValue().MarshalJSON()
	if err != nil {
		return nil, err
	}
	var resp solverd.SolveResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

func printResponse(w io.Writer, resp *solverd.SolveResponse) {
	for i, table := range resp.Tables {
		title := fmt.Sprintf("Table %d", i)
		if table.Phase != "" {
			title += " [" + table.Phase + "]"
		}
		if table.Pivot != nil && table.Pivot.Row < len(table.RowLabels) && table.Pivot.Col < len(table.Columns) {
			title += fmt.Sprintf("  pivot: %s enters, %s leaves",
				table.Columns[table.Pivot.Col], table.RowLabels[table.Pivot.Row])
		}
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, table.String())
	}

	fmt.Fprintf(w, "Status:     %s\n", resp.Status)
	fmt.Fprintf(w, "Method:     %s\n", resp.Method)
	fmt.Fprintf(w, "Iterations: %d\n", resp.Iterations)
	if resp.OptimalValue == nil {
		return
	}
	fmt.Fprintf(w, "Optimal:    %.4f\n", *resp.OptimalValue)

	names := make([]string, 0, len(resp.Variables))
	for name := range resp.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s = %.4f\n", name, resp.Variables[name])
	}
}
