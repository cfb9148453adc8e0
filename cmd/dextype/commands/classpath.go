package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/funvibe/dextype/internal/classpath"
)

var classpathCmd = &cobra.Command{
	Use:   "classpath",
	Short: "Manage class hierarchy stores",
}

var classpathImportCmd = &cobra.Command{
	Use:   "import <classes.yaml> <store.db>",
	Short: "Import a YAML class list into a SQLite store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := classpath.LoadYAML(args[0])
		if err != nil {
			return err
		}
		store, err := classpath.OpenStore(args[1])
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(cmd.Context(), g); err != nil {
			return err
		}
		n, err := store.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d classes into %s\n", n, args[1])
		return nil
	},
}

var classpathShowCmd = &cobra.Command{
	Use:   "show <classes.yaml|store.db>",
	Short: "List the classes of a hierarchy with their ancestors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openClasspath(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range g.Classes() {
			kind := "class"
			if c.Interface {
				kind = "interface"
			}
			fmt.Fprintf(out, "%s %s", kind, c.Name)
			if anc := g.Ancestors(c.Name); len(anc) > 0 {
				fmt.Fprintf(out, " : %v", anc)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	classpathCmd.AddCommand(classpathImportCmd, classpathShowCmd)
	AddCommand(classpathCmd)
}
