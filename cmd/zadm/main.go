package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/citrus-it/zadm"
	"github.com/citrus-it/zadm/internal/cli"
	"github.com/citrus-it/zadm/pkg/editor"
	"github.com/citrus-it/zadm/pkg/fetcher"
	"github.com/citrus-it/zadm/pkg/runner"
)

var (
	jsonout     = false
	logLevel    = "warn"
	brand       = "kvm"
	force       = false
	downloadDir = os.TempDir()
	workers     = 3
)

func newContext() *zadm.Context {
	return zadm.NewContext(runner.New(nil))
}

func setupLogging(cmd *cobra.Command, _ []string) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"level": logLevel,
		}).Fatal("unable to set up logging")
	}
	log.SetLevel(level)
}

func help(cmd *cobra.Command, _ []string) {
	if err := cmd.Help(); err != nil {
		log.WithField("error", err).Fatal("help")
	}
}

func getZone(ctx *zadm.Context, name string) *zadm.Zone {
	z, err := ctx.Zone(name)
	if err != nil {
		log.WithFields(log.Fields{
			"zone":  name,
			"error": err,
		}).Fatal("zone lookup failed")
	}
	return z
}

func zoneJMap(z *zadm.Zone) cli.JMap {
	return cli.JMap{
		"zonename": z.Name,
		"uuid":     z.UUID,
		"brand":    string(z.Brand),
		"state":    z.State,
		"zonepath": z.Path,
	}
}

func list(cmd *cobra.Command, args []string) {
	ctx := newContext()
	zones, err := ctx.Zones()
	if err != nil {
		log.WithField("error", err).Fatal("failed to list zones")
	}
	for _, z := range zones {
		if len(args) > 0 && !contains(args, z.Name) {
			continue
		}
		zoneJMap(z).Print(jsonout)
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func brands(cmd *cobra.Command, _ []string) {
	if jsonout {
		buf, _ := json.Marshal(zadm.Brands())
		fmt.Println(string(buf))
		return
	}
	for _, b := range zadm.Brands() {
		fmt.Println(b)
	}
}

func show(cmd *cobra.Command, args []string) {
	ctx := newContext()
	z := getZone(ctx, args[0])
	cfg, err := z.CurrentConfig()
	if err != nil {
		log.WithFields(log.Fields{
			"zone":  z.Name,
			"error": err,
		}).Fatal("failed to read configuration")
	}
	buf, err := cfg.Serialize()
	if err != nil {
		log.WithField("error", err).Fatal("failed to serialize configuration")
	}

	if len(args) > 1 {
		result := gjson.GetBytes(buf, args[1])
		if !result.Exists() {
			log.WithFields(log.Fields{
				"zone":     z.Name,
				"property": args[1],
			}).Fatal("no such property")
		}
		fmt.Println(result.String())
		return
	}
	fmt.Print(string(buf))
}

func runSession(session *zadm.Session, name string) *zadm.Config {
	if err := session.Run(); err != nil {
		log.WithFields(log.Fields{
			"zone":  name,
			"error": err,
			"state": session.State(),
		}).Fatal("session failed")
	}
	switch session.State() {
	case zadm.SessionAbandoned:
		fmt.Println("no changes applied")
	case zadm.SessionCommitted:
		fmt.Printf("zone %s configuration committed\n", name)
	}
	return session.Result()
}

func create(cmd *cobra.Command, args []string) {
	ctx := newContext()
	name := args[0]
	if _, err := ctx.Zone(name); err == nil {
		log.WithField("zone", name).Fatal("zone already exists")
	}
	if !zadm.KnownBrand(zadm.Brand(brand)) {
		log.WithField("brand", brand).Fatal("unknown brand")
	}

	z := ctx.NewZone(name, zadm.Brand(brand))
	session := zadm.NewSession(z).Confirm(cli.Confirm)
	if len(args) > 1 {
		for _, arg := range args[1:] {
			cli.AssertKeyValue(arg)
		}
		session.WithOverrides(args[1:])
	} else {
		session.WithEditor(editor.New())
	}

	cfg := runSession(session, name)
	if cfg != nil {
		checkResources(ctx, cfg)
	}
}

func edit(cmd *cobra.Command, args []string) {
	ctx := newContext()
	z := getZone(ctx, args[0])
	session := zadm.NewSession(z).WithEditor(editor.New()).Confirm(cli.Confirm)
	runSession(session, z.Name)
}

func set(cmd *cobra.Command, args []string) {
	ctx := newContext()
	z := getZone(ctx, args[0])
	for _, arg := range args[1:] {
		cli.AssertKeyValue(arg)
	}
	session := zadm.NewSession(z).WithOverrides(args[1:])
	runSession(session, z.Name)
}

func del(cmd *cobra.Command, args []string) {
	ctx := newContext()
	z := getZone(ctx, args[0])
	if !force && !cli.Confirm(fmt.Sprintf("Delete zone %q?", z.Name)) {
		return
	}
	if err := z.Delete(); err != nil {
		log.WithFields(log.Fields{
			"zone":  z.Name,
			"error": err,
		}).Fatal("failed to delete zone")
	}
}

func console(cmd *cobra.Command, args []string) {
	ctx := newContext()
	z := getZone(ctx, args[0])
	// Only returns on failure; on success the process image is replaced
	err := z.Console()
	log.WithFields(log.Fields{
		"zone":  z.Name,
		"error": err,
	}).Fatal("failed to attach console")
}

func fetch(cmd *cobra.Command, urls []string) {
	if len(urls) == 0 {
		urls = cli.Read(os.Stdin)
	}
	failed := 0
	for _, result := range fetcher.Fetch(urls, downloadDir, workers) {
		if result.Err != nil {
			failed++
			log.WithFields(log.Fields{
				"url":   result.URL,
				"error": result.Err,
			}).Error("download failed")
			continue
		}
		fmt.Println(result.Path)
	}
	if failed > 0 {
		log.WithField("failed", failed).Fatal("some downloads failed")
	}
}

// checkResources warns when a committed configuration oversubscribes the
// host. Best effort: a host without the relevant tooling skips the check.
func checkResources(ctx *zadm.Context, cfg *zadm.Config) {
	if ram, ok := cfg.Values["ram"].(string); ok {
		if lines, err := ctx.Runner().Run("swap", "-s"); err == nil && len(lines) > 0 {
			if usage, err := runner.ParseSwap(lines[0]); err == nil {
				if need, err := parseSize(ram); err == nil && need/1024 > usage.AvailableKB {
					log.WithFields(log.Fields{
						"ram":       ram,
						"available": fmt.Sprintf("%dk", usage.AvailableKB),
					}).Warn("configured memory exceeds available swap")
				}
			}
		}
	}

	if vcpus, ok := cfg.Values["vcpus"].(int64); ok && vcpus > 1 {
		if lines, err := ctx.Runner().Run("dispadmin", "-d"); err == nil {
			if class, err := runner.ParseSchedulerClass(lines); err == nil && class != "FSS" {
				log.WithFields(log.Fields{
					"vcpus": vcpus,
					"class": class,
				}).Warn("multi-vcpu zones perform best under the FSS scheduler class")
			}
		}
	}
}

// parseSize converts a human size ("2G", "512m", "1048576") to bytes
func parseSize(size string) (uint64, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, fmt.Errorf("empty size")
	}
	shift := uint(0)
	switch size[len(size)-1] {
	case 'k', 'K':
		shift = 10
	case 'm', 'M':
		shift = 20
	case 'g', 'G':
		shift = 30
	case 't', 'T':
		shift = 40
	}
	if shift != 0 {
		size = size[:len(size)-1]
	}
	n, err := strconv.ParseUint(size, 10, 64)
	if err != nil {
		return 0, err
	}
	return n << shift, nil
}

func main() {
	root := &cobra.Command{
		Use:              "zadm",
		Short:            "zadm manages zone configurations",
		PersistentPreRun: setupLogging,
		Run:              help,
	}
	root.PersistentFlags().BoolVarP(&jsonout, "jsonout", "j", jsonout, "output in json")
	root.PersistentFlags().StringVarP(&logLevel, "log-level", "l", logLevel, "log level")

	cmdList := &cobra.Command{
		Use:   "list [<zone>...]",
		Short: "List the zones",
		Run:   list,
	}

	cmdBrands := &cobra.Command{
		Use:   "brands",
		Short: "List the available brands",
		Run:   brands,
	}

	cmdShow := &cobra.Command{
		Use:   "show <zone> [<property>]",
		Short: "Show a zone configuration",
		Args:  cobra.RangeArgs(1, 2),
		Run:   show,
	}

	cmdCreate := &cobra.Command{
		Use:   "create <zone> [<key=value>...]",
		Short: "Create a zone",
		Long:  "Create a new zone. With key=value arguments the configuration is assembled non-interactively; otherwise an editor opens on the brand's default configuration.",
		Args:  cobra.MinimumNArgs(1),
		Run:   create,
	}
	cmdCreate.Flags().StringVarP(&brand, "brand", "b", brand, "brand of the new zone")

	cmdEdit := &cobra.Command{
		Use:   "edit <zone>",
		Short: "Edit a zone configuration interactively",
		Args:  cobra.ExactArgs(1),
		Run:   edit,
	}

	cmdSet := &cobra.Command{
		Use:   "set <zone> <key=value>...",
		Short: "Set zone configuration properties",
		Args:  cobra.MinimumNArgs(2),
		Run:   set,
	}

	cmdDelete := &cobra.Command{
		Use:   "delete <zone>",
		Short: "Delete a zone configuration",
		Args:  cobra.ExactArgs(1),
		Run:   del,
	}
	cmdDelete.Flags().BoolVarP(&force, "force", "F", force, "skip the confirmation prompt")

	cmdConsole := &cobra.Command{
		Use:   "console <zone>",
		Short: "Attach to a zone console",
		Args:  cobra.ExactArgs(1),
		Run:   console,
	}

	cmdFetch := &cobra.Command{
		Use:   "fetch [<url>...]",
		Short: "Download zone images",
		Run:   fetch,
	}
	cmdFetch.Flags().StringVarP(&downloadDir, "dir", "d", downloadDir, "download directory")
	cmdFetch.Flags().IntVarP(&workers, "workers", "w", workers, "concurrent downloads")

	root.AddCommand(cmdList, cmdBrands, cmdShow, cmdCreate, cmdEdit, cmdSet, cmdDelete, cmdConsole, cmdFetch)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
