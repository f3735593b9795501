// modbusctl is a small operator CLI over the controller: one-shot reads
// and writes, a bulk read of the whole catalog, and a foreground monitor
// that prints value changes until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/TacoronteRiveroCristian/ModbusController/catalog"
	"github.com/TacoronteRiveroCristian/ModbusController/config"
	"github.com/TacoronteRiveroCristian/ModbusController/controller"
	transport "github.com/TacoronteRiveroCristian/ModbusController/transport/modbus"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	cfgPath := os.Args[1]
	command := os.Args[2]
	args := os.Args[3:]

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("config load failed")
	}

	cat, err := cfg.Catalog()
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog build failed")
	}

	tr, err := transport.New(cfg.Transport())
	if err != nil {
		logger.Fatal().Err(err).Msg("transport build failed")
	}

	ctl, err := controller.New(cat, tr,
		controller.WithLogger(logger),
		controller.WithWordOrder(cfg.Order()),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("controller build failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctl.Connect(ctx); err != nil {
		logger.Fatal().Err(err).Msg("connect failed")
	}
	defer ctl.Close()

	switch command {
	case "read":
		err = runRead(ctx, ctl, args)
	case "write":
		err = runWrite(ctx, ctl, args)
	case "read-all":
		err = runReadAll(ctx, ctl, cat)
	case "monitor":
		err = runMonitor(ctx, ctl, logger)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg(command + " failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: modbusctl <config.yaml> <command> [args]

commands:
  read <name>           read one register
  write <name> <value>  write one register
  read-all              read every configured register
  monitor               poll configured registers and print changes`)
}

func runRead(ctx context.Context, ctl *controller.Controller, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("read needs exactly one register name")
	}
	v, err := ctl.ReadRegister(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s = %v\n", args[0], v)
	return nil
}

func runWrite(ctx context.Context, ctl *controller.Controller, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("write needs a register name and a value")
	}
	return ctl.WriteRegister(ctx, args[0], parseValue(args[1]))
}

func runReadAll(ctx context.Context, ctl *controller.Controller, cat *catalog.Catalog) error {
	values, err := ctl.ReadAll(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if reg, ok := cat.Lookup(name); ok && reg.Unit != "" {
			fmt.Printf("%-30s %v %s\n", name, values[name], reg.Unit)
			continue
		}
		fmt.Printf("%-30s %v\n", name, values[name])
	}
	return nil
}

func runMonitor(ctx context.Context, ctl *controller.Controller, logger zerolog.Logger) error {
	err := ctl.StartMonitoring(func(name string, previous, current any) {
		fmt.Printf("%s  %s: %v -> %v\n", time.Now().Format(time.TimeOnly), name, previous, current)
	})
	if err != nil {
		return err
	}
	defer ctl.StopMonitoring()

	for {
		select {
		case <-ctx.Done():
			return nil
		case pe := <-ctl.Errors():
			logger.Warn().Err(pe.Err).Str("register", pe.Register).Msg("poll error")
		}
	}
}

// parseValue treats anything numeric as a number and everything else as a
// string, matching how registers are typed.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
