// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/talonforge/rvsentry/config"
	"github.com/talonforge/rvsentry/pkg/sentry/fs"
	"github.com/talonforge/rvsentry/pkg/sentry/kernel"
	"github.com/talonforge/rvsentry/pkg/sentry/mm"
)

// bootCmd implements subcommands.Command for "boot": it brings up a
// Kernel with the demoInit tree installed as init, runs every hart's
// scheduler loop, and drives the clock, the way a real boot loader would
// call into main() after procinit/userinit (original_source/kernel/main.c).
type bootCmd struct {
	configPath string
	discipline string
	seconds    int
}

func (*bootCmd) Name() string     { return "boot" }
func (*bootCmd) Synopsis() string { return "boot the kernel core and run the demo workload tree" }
func (*bootCmd) Usage() string {
	return "boot [-config=path] [-discipline=name] [-seconds=n]\n"
}

func (c *bootCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "TOML config file (defaults to config.Default())")
	f.StringVar(&c.discipline, "discipline", "", "override the configured scheduling discipline")
	f.IntVar(&c.seconds, "seconds", 5, "how long to run before shutting down")
}

func (c *bootCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	log, _ := args[0].(*logrus.Logger)

	cfg, err := c.loadConfig()
	if err != nil {
		log.Errorf("config: %v", err)
		return subcommands.ExitFailure
	}
	log.Infof("booting: discipline=%s nproc=%d ncpu=%d", cfg.Discipline, cfg.NPROC, cfg.NCPU)

	k := kernel.New(cfg, mm.NewFake(), fs.NewFake())
	k.UserInit(demoInit(log))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, cpu := range k.CPUs() {
		wg.Add(1)
		go func(cpu *kernel.CPU) {
			defer wg.Done()
			k.SchedulerLoop(cpu, stop)
		}(cpu)
	}

	tickerDone := make(chan struct{})
	go func() {
		t := time.NewTicker(10 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				k.Tick()
			case <-tickerDone:
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGUSR1)
	defer signal.Stop(sigCh)

	deadline := time.After(time.Duration(c.seconds) * time.Second)
loop:
	for {
		select {
		case <-sigCh:
			printProcdump(log, k)
		case <-deadline:
			break loop
		}
	}

	close(stop)
	close(tickerDone)
	wg.Wait()

	printProcdump(log, k)
	return subcommands.ExitSuccess
}

func (c *bootCmd) loadConfig() (config.Config, error) {
	var cfg config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
		if err != nil {
			return config.Config{}, err
		}
	} else {
		cfg = config.Default()
	}
	if c.discipline != "" {
		d := config.Discipline(c.discipline)
		if !d.Valid() {
			return config.Config{}, fmt.Errorf("unknown discipline %q", c.discipline)
		}
		cfg.Discipline = d
	}
	return cfg, nil
}

func printProcdump(log *logrus.Logger, k *kernel.Kernel) {
	rows := k.Procdump()
	log.Infof("procdump (discipline=%s, uptime=%d ticks): %d processes", k.Config().Discipline, k.Ticks(), len(rows))
	for _, r := range rows {
		switch k.Config().Discipline {
		case config.Lottery:
			log.Infof("  pid=%-4d %-10s %-6s sched=%-6d run=%-6d sleep=%-6d tickets=%d",
				r.PID, r.Name, r.State, r.SchedCount, r.RunTicks, r.SleepTicks, r.Tickets)
		case config.PBS:
			log.Infof("  pid=%-4d %-10s %-6s sched=%-6d run=%-6d sleep=%-6d prio=%d dp=%d",
				r.PID, r.Name, r.State, r.SchedCount, r.RunTicks, r.SleepTicks, r.StaticPriority, r.DynamicPriority)
		case config.MLFQ:
			log.Infof("  pid=%-4d %-10s %-6s sched=%-6d run=%-6d sleep=%-6d level=%d",
				r.PID, r.Name, r.State, r.SchedCount, r.RunTicks, r.SleepTicks, r.MLFQLevel)
		default:
			log.Infof("  pid=%-4d %-10s %-6s sched=%-6d run=%-6d sleep=%-6d",
				r.PID, r.Name, r.State, r.SchedCount, r.RunTicks, r.SleepTicks)
		}
	}
}
