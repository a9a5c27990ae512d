package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/sdtmcheck/internal/rules"
	"github.com/solatis/sdtmcheck/internal/ruleset"
	"github.com/solatis/sdtmcheck/internal/types"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and maintain rule sets",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check core and project rules for missing fields, duplicates, limits and bad conditions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		proj := openProject(cfg)
		all, _, err := ruleset.LoadAll(cfg.Rules.CorePath, proj.CustomRulesPath())
		if err != nil {
			return err
		}

		issues := ruleset.Check(all, cfg.Validation.MaxRulesPerDomain)
		out := cmd.OutOrStdout()
		for _, is := range issues {
			fmt.Fprintln(out, is.String())
		}
		if len(issues) > 0 {
			return fmt.Errorf("%d rule issues", len(issues))
		}
		fmt.Fprintf(out, "%d rules OK\n", len(all))
		return nil
	},
}

var rulesTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the built-in rule templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		category, _ := cmd.Flags().GetString("category")
		domain, _ := cmd.Flags().GetString("domain")
		tag, _ := cmd.Flags().GetString("tag")

		var list []ruleset.Template
		switch {
		case category != "":
			list = ruleset.TemplatesByCategory(category)
		case domain != "":
			list = ruleset.TemplatesByDomain(domain)
		case tag != "":
			list = ruleset.TemplatesByTag(tag)
		default:
			list = ruleset.Templates()
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tDOMAIN\tCONDITION\tSEVERITY\tNAME")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Category, t.Domain, t.Condition, t.Severity, t.Name)
		}
		return w.Flush()
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a custom rule to the project, from flags or a template",
	Args:  cobra.NoArgs,
	RunE:  runRulesAdd,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Import custom rules from a CSV file into the project",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesImport,
}

func init() {
	rulesCheckCmd.Flags().String("project", "default", "project name")
	rulesCheckCmd.Flags().String("project-root", "./projects", "directory holding projects")
	rulesCheckCmd.Flags().String("core-rules", "rules/core_rules.json", "core rules file")

	rulesTemplatesCmd.Flags().String("category", "", "only templates of this category")
	rulesTemplatesCmd.Flags().String("domain", "", "only templates for this domain")
	rulesTemplatesCmd.Flags().String("tag", "", "only templates with this tag")

	for _, c := range []*cobra.Command{rulesAddCmd, rulesImportCmd} {
		c.Flags().String("project", "default", "project name")
		c.Flags().String("project-root", "./projects", "directory holding projects")
	}
	f := rulesAddCmd.Flags()
	f.String("template", "", "start from this template ID")
	f.String("id", "", "rule ID (generated from the domain when empty)")
	f.String("domain", "", "target domain")
	f.String("variable", "", "target variable")
	f.String("condition", "", "condition, e.g. \"AGE < 18\"")
	f.String("severity", string(types.SeverityError), "ERROR, WARNING or INFO")
	f.String("message", "", "violation message")

	rulesCmd.AddCommand(rulesCheckCmd, rulesTemplatesCmd, rulesAddCmd, rulesImportCmd)
	rootCmd.AddCommand(rulesCmd)
}

// ruleFromFlags builds a rule from --template overlaid with explicit flags.
func ruleFromFlags(cmd *cobra.Command) (types.Rule, error) {
	var r types.Rule
	if id, _ := cmd.Flags().GetString("template"); id != "" {
		t, ok := ruleset.TemplateByID(id)
		if !ok {
			return r, fmt.Errorf("unknown template %q", id)
		}
		r = t.Rule()
		// Template IDs are catalogue keys, not project rule IDs.
		r.ID = ""
	}

	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) || *dst == "" {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("id", &r.ID)
	set("domain", &r.Domain)
	set("variable", &r.Variable)
	set("condition", &r.Condition)
	set("message", &r.Message)
	sev := string(r.Severity)
	set("severity", &sev)
	r.Severity = types.Severity(sev)

	var missing []string
	for name, v := range map[string]string{"domain": r.Domain, "variable": r.Variable, "condition": r.Condition, "message": r.Message} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return r, fmt.Errorf("%w: %s", types.ErrMissingRuleFields, strings.Join(missing, ", "))
	}
	if _, err := rules.Parse(r.Condition); err != nil {
		return r, err
	}
	return r, nil
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	r, err := ruleFromFlags(cmd)
	if err != nil {
		return err
	}

	proj := openProject(cfg)
	custom, err := proj.LoadCustomRules()
	if err != nil {
		return err
	}
	updated, stored, err := ruleset.Add(custom, r)
	if err != nil {
		return err
	}
	if err := checkLimits(updated, cfg.Validation.MaxRulesPerDomain); err != nil {
		return err
	}
	if err := proj.SaveCustomRules(updated); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s to project %s\n", stored.ID, proj.Name())
	return nil
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	imported, err := ruleset.ImportCSV(f)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	proj := openProject(cfg)
	custom, err := proj.LoadCustomRules()
	if err != nil {
		return err
	}
	for _, r := range imported {
		if custom, _, err = ruleset.Add(custom, r); err != nil {
			return err
		}
	}
	if err := checkLimits(custom, cfg.Validation.MaxRulesPerDomain); err != nil {
		return err
	}
	if err := proj.SaveCustomRules(custom); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rules into project %s\n", len(imported), proj.Name())
	return nil
}

// checkLimits rejects a custom rule set that fails Check.
func checkLimits(rs []types.Rule, maxPerDomain int) error {
	issues := ruleset.Check(rs, maxPerDomain)
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.String()
	}
	return fmt.Errorf("rule set rejected: %s", strings.Join(msgs, "; "))
}
