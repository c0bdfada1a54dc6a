package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stefanomil/SPIRV-Tools/internal/ir"
)

// NewDisasmCommand creates the disasm command: print a module's stable text
// form, which is what the golden tests diff against.
func NewDisasmCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm <module.json>",
		Short: "Print a module as stable disassembly text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    root.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   root.Verbose,
			}
			m, err := loadModule(args[0])
			if err != nil {
				out.Error(ErrCodeModuleDecode, err.Error(), nil)
				return WrapExitError(ExitCommandError, "load module", err)
			}
			text := ir.Disassemble(m)
			if root.Format == "json" {
				return out.Success(map[string]any{"disassembly": text})
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	return cmd
}
