package cmdenv_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/aide/cmd/aide/cmdenv"
	"github.com/papercomputeco/aide/pkg/config"
)

var _ = Describe("Load", func() {
	var (
		dir string
		env *cmdenv.Env
	)

	var stderr *bytes.Buffer

	execute := func(args ...string) error {
		var workers int
		cmd := &cobra.Command{
			Use: "probe",
			RunE: func(cmd *cobra.Command, _ []string) error {
				var err error
				env, err = cmdenv.Load(cmd, cmdenv.Binding{
					Flags: config.WatchFlags,
					Keys:  []string{config.FlagWorkers},
				})
				return err
			},
		}
		cmd.PersistentFlags().BoolP("debug", "d", false, "")
		cmd.PersistentFlags().String("config-dir", "", "")
		config.AddStoreFlags(cmd)
		config.AddIntFlag(cmd, config.WatchFlags, config.FlagWorkers, &workers)

		stderr = &bytes.Buffer{}
		cmd.SetErr(stderr)
		cmd.SetArgs(append(args, "--config-dir", dir))
		return cmd.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		cfg := config.NewDefaultConfig()
		cfg.Search.Strategy = "text"
		cfg.Storage.SQLitePath = "from-file.db"
		cfg.Watch.Workers = 2
		data, err := config.EncodeConfigTOML(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), data, 0o600)).To(Succeed())
	})

	It("reads config.toml from the config dir", func() {
		Expect(execute()).To(Succeed())
		Expect(env.Dir).To(Equal(dir))
		Expect(env.Config.Search.Strategy).To(Equal("text"))
		Expect(env.Config.Storage.SQLitePath).To(Equal("from-file.db"))
		Expect(env.Config.Watch.Workers).To(Equal(2))
		Expect(env.Logger).NotTo(BeNil())
	})

	It("prefers flags over the config file", func() {
		Expect(execute("--sqlite", "from-flag.db", "--workers", "9")).To(Succeed())
		Expect(env.Config.Storage.SQLitePath).To(Equal("from-flag.db"))
		Expect(env.Config.Watch.Workers).To(Equal(9))
	})

	It("prefers AIDE_ environment variables over the config file", func() {
		GinkgoT().Setenv("AIDE_SEARCH_STRATEGY", "semantic")
		Expect(execute()).To(Succeed())
		Expect(env.Config.Search.Strategy).To(Equal("semantic"))
	})

	It("resolves relative paths against the config dir", func() {
		Expect(execute()).To(Succeed())
		Expect(env.Path("feeds.yaml")).To(Equal(filepath.Join(dir, "feeds.yaml")))
		Expect(env.Path("/tmp/feeds.yaml")).To(Equal("/tmp/feeds.yaml"))
	})

	Describe("LogToFile", func() {
		It("appends JSON records to the file and keeps the terminal logger", func() {
			Expect(execute()).To(Succeed())
			env.SetLevel(slog.LevelInfo)

			closer, err := env.LogToFile("watch.log")
			Expect(err).NotTo(HaveOccurred())

			env.Logger.Info("feed pass complete", "feeds", 3)
			env.Logger.Debug("not at this level")
			Expect(closer.Close()).To(Succeed())

			Expect(stderr.String()).To(ContainSubstring("feed pass complete"))

			data, err := os.ReadFile(filepath.Join(dir, "watch.log"))
			Expect(err).NotTo(HaveOccurred())
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			Expect(lines).To(HaveLen(1))

			var record map[string]any
			Expect(json.Unmarshal([]byte(lines[0]), &record)).To(Succeed())
			Expect(record["msg"]).To(Equal("feed pass complete"))
			Expect(record["level"]).To(Equal("INFO"))
			Expect(record["feeds"]).To(BeNumerically("==", 3))
		})

		It("fails when the file cannot be opened", func() {
			Expect(execute()).To(Succeed())
			_, err := env.LogToFile(filepath.Join(dir, "missing", "watch.log"))
			Expect(err).To(MatchError(ContainSubstring("opening log file")))
		})
	})
})
