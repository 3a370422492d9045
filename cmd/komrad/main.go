// Command komrad is the runtime's command-line front door: it starts
// the ambient singleton agents (Registry, agent/spawn proxies, IO),
// spawns the bundled counter and greeter example programs, and
// optionally exposes both over HTTP.
//
// It replaces a hand-rolled interactive menu loop with a small cobra
// command tree; the banner text is kept, the old dispatch is not.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"komrad/adapters/webadapter"
	"komrad/examples"
	"komrad/internal/config"
	"komrad/internal/obslog"
	"komrad/pkg/kchannel"
	"komrad/pkg/kruntime"
	"komrad/pkg/kvalue"
)

const banner = `
╔═══════════════════════════════════════════════════════════╗
║                        KOMRAD RUNTIME                       ║
║          Concurrent, pattern-dispatched agent programs       ║
╚═══════════════════════════════════════════════════════════╝
`

var (
	configPath string
	httpAddr   string
)

func main() {
	root := &cobra.Command{
		Use:   "komrad",
		Short: "Run Komrad agent programs",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (optional)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the runtime and spawn the bundled example agents",
		RunE:  runRuntime,
	}
	runCmd.Flags().StringVar(&httpAddr, "http", "", "if set, expose the counter and greeter agents over HTTP at this address (e.g. :8080)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the runtime version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("komrad 0.1.0")
		},
	}

	root.AddCommand(runCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRuntime(cmd *cobra.Command, args []string) error {
	fmt.Println(banner)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	obslog.Init(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nshutting down...")
		cancel()
	}()

	rt := kruntime.New(ctx, cfg)
	defer rt.Shutdown()

	counter, err := rt.CreateAgent("Counter", examples.BuildCounterAgent(), nil)
	if err != nil {
		return errors.Wrap(err, "spawning counter agent")
	}
	greeter, err := rt.CreateAgent("Greeter", examples.BuildGreeterAgent(), nil)
	if err != nil {
		return errors.Wrap(err, "spawning greeter agent")
	}

	rt.Send(counter, []kvalue.Value{kvalue.WordV("increment")})
	rt.Send(counter, []kvalue.Value{kvalue.WordV("increment")})
	total := rt.Ask(counter, []kvalue.Value{kvalue.WordV("get")})
	fmt.Printf("counter: %s\n", total.String())

	rt.Send(greeter, []kvalue.Value{kvalue.WordV("greet"), kvalue.Str("Komrad")})

	if httpAddr == "" {
		<-ctx.Done()
		return nil
	}

	srv := webadapter.New(rt, map[string]kchannel.Channel{
		"/counter": counter,
		"/greeter": greeter,
	})
	fmt.Printf("HTTP adapter listening on %s\n", httpAddr)
	go func() {
		if err := srv.ListenAndServe(httpAddr); err != nil {
			fmt.Fprintf(os.Stderr, "webadapter: %v\n", err)
			cancel()
		}
	}()

	<-ctx.Done()
	return nil
}
