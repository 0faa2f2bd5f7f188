package main

import (
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/janhq/dialogue-bot/internal/domain/content"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the content snapshot",
	Long:  `Print the JSON schema of the authored content (conversations, collections, series, blocks, messages) for authoring tools.`,
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func contentSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            false,
		ExpandedStruct:            true,
	}
	schema := reflector.Reflect(&content.Snapshot{})
	schema.Title = "Dialogue content"
	schema.Description = "Authored conversation graph served to the dialogue bot"
	return schema
}

func runSchema(cmd *cobra.Command, _ []string) error {
	data, err := contentSchema().MarshalJSON()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}
