package cli

import (
	"fmt"
	"path/filepath"

	"github.com/ika-labs/ika/internal/branding"
	"github.com/ika-labs/ika/internal/config"
	"github.com/ika-labs/ika/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	initName        string
	initOutputDir   string
	initSkipInstall bool
	initSkipGit     bool
)

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "Project name (alternative to the positional argument)")
	initCmd.Flags().StringVarP(&initOutputDir, "output-dir", "o", "", "Directory to create the project in (default: ./<name>)")
	initCmd.Flags().BoolVar(&initSkipInstall, "skip-install", false, "Do not run npm install")
	initCmd.Flags().BoolVar(&initSkipGit, "skip-git", false, "Do not initialize a git repository")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new Move project",
	Long: `Create a new Sui Move project with a counter module, its Move unit test,
and a TypeScript end-to-end test wired to "` + branding.CLIName() + ` test".

Examples:
  ` + branding.CLIName() + ` init my-counter
  ` + branding.CLIName() + ` init --name my-counter --output-dir ./contracts/counter --skip-git`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := initName
		if len(args) == 1 {
			if name != "" && name != args[0] {
				return fmt.Errorf("project name given twice: %q and --name %q", args[0], name)
			}
			name = args[0]
		}
		if name == "" {
			return fmt.Errorf("a project name is required: %s init <name>", branding.CLIName())
		}
		if err := scaffold.ValidateName(name); err != nil {
			return err
		}

		outputDir := initOutputDir
		if outputDir == "" {
			outputDir = name
		}
		absDir, err := filepath.Abs(outputDir)
		if err != nil {
			return fmt.Errorf("resolving output directory: %w", err)
		}

		con.Step("Creating %s in %s", name, absDir)
		result, err := scaffold.Generate(scaffold.NewScaffoldData(name), absDir)
		if err != nil {
			return err
		}
		for _, f := range result.Files {
			con.Debugf("  created %s", f)
		}
		for _, w := range result.Warnings {
			con.Warn("%s", w)
		}

		s := config.Current()
		if !initSkipInstall {
			con.Step("Installing end-to-end test dependencies")
		}
		warnings, err := scaffold.Bootstrap(cmd.Context(), newRunner(con), absDir, scaffold.BootstrapOptions{
			NpmBinary:   s.NpmBinary,
			GitBinary:   s.GitBinary,
			SkipInstall: initSkipInstall,
			SkipGit:     initSkipGit,
		})
		if err != nil {
			return err
		}
		for _, w := range warnings {
			con.Warn("%s", w)
		}

		con.Success("%s initialized", name)
		con.Info("Next: cd %s && %s test", outputDir, branding.CLIName())
		return nil
	},
}
