/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"storywiki/internal/config"
	"storywiki/internal/crash"
	applog "storywiki/internal/log"
	"storywiki/internal/storage"
	"storywiki/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "storywiki renders game story scripts as wiki pages")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  storywiki [-config file] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                                   Show version")
	fmt.Fprintln(w, "  render [flags] <title> <group>...         Render one story unit from script groups")
	fmt.Fprintln(w, "  main-story [-volume N]                    Render every main story episode")
	fmt.Fprintln(w, "  momotalk <character id> <name>            Render the MomoTalk page of a student")
	fmt.Fprintln(w, "  search [flags] [terms...]                 Search rendered pages")
	fmt.Fprintln(w, "  failures [run id]                         List units that failed in a run (latest by default)")
	fmt.Fprintln(w, "  revisions [-limit N] [-keep N] <title>    List stored revisions of a page")
	fmt.Fprintln(w, "  characters                                List indexed characters with their page counts")
	fmt.Fprintln(w, "  reindex                                   Check the search index and rebuild it if needed")
}

func main() {
	applog.Init(applog.FromEnv())
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	l := applog.WithComponent("cli")
	fs := flag.NewFlagSet("storywiki", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default: $SW_CONFIG or the per-user config path)")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "storywiki")
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	applog.Init(cfg.Logging.LogOptions())
	l = applog.WithComponent("cli")

	ws, err := storage.InitWorkspace(cfg.Output.Dir)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	ws.KeepRevisions = cfg.Output.KeepRevisions
	defer crash.Recover(ws, cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{cfg: cfg, ws: ws, out: stdout, log: l}
	l.Debug("start", slog.String("cmd", cmd), slog.Int("args", len(cmdArgs)))
	var cmdErr error
	switch cmd {
	case "render":
		cmdErr = a.render(ctx, cmdArgs)
	case "main-story":
		cmdErr = a.mainStory(ctx, cmdArgs)
	case "momotalk":
		cmdErr = a.momotalk(ctx, cmdArgs)
	case "search":
		cmdErr = a.search(ctx, cmdArgs)
	case "failures":
		cmdErr = a.failures(ctx, cmdArgs)
	case "revisions":
		cmdErr = a.revisions(ctx, cmdArgs)
	case "characters":
		cmdErr = a.characters(ctx)
	case "reindex":
		cmdErr = a.reindex(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		usage(stderr)
		return 2
	}
	if cmdErr != nil {
		if ue, ok := cmdErr.(usageError); ok {
			fmt.Fprintln(stderr, ue.Error())
			usage(stderr)
			return 2
		}
		l.Error("command failed", slog.String("cmd", cmd), slog.Any("err", cmdErr))
		fmt.Fprintln(stderr, "Error:", cmdErr)
		return 1
	}
	return 0
}

// usageError reports bad command line arguments.
type usageError string

func (e usageError) Error() string { return string(e) }
