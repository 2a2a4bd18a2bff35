package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const defaultSpeech = "You've made your agent talk!"

func newSpeakCmd(o *rootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "speak [TEXT...]",
		Short: "Synthesize speech with the configured TTS provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				text = defaultSpeech
			}

			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Providers.TTS.Name == "" {
				return errors.New("providers.tts is not configured")
			}
			p, err := o.registry.CreateTTS(cfg.Providers.TTS)
			if err != nil {
				return fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
			}

			audio, err := p.Synthesize(cmd.Context(), text)
			if err != nil {
				return err
			}
			defer audio.Close()

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			n, err := io.Copy(f, audio)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Audio saved to %s (%d bytes, %s)\n", outPath, n, p.Format())
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "agent-talk.mp3", "output audio file")
	return cmd
}
