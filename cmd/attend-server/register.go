package main

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/config"
	"github.com/Lumnic12/attend/internal/logging"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Enroll a badge holder from a photo file",
	Long: `Enroll a badge holder without a running server. The photo is checked for
a face, stored in the faces directory as <name>.jpg, and the card is added
to the authorized user list. A running server picks the change up on
POST /v1/identities/reload.`,
	Example: "  attend-server register --name alice --card 04A1B2C3 --photo alice.jpg",
	RunE:    runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Name of the badge holder")
	registerCmd.Flags().String("card", "", "Card UID as reported by the reader")
	registerCmd.Flags().String("photo", "", "Path to a JPEG or PNG photo with one face")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("card")
	_ = registerCmd.MarkFlagRequired("photo")
}

func runRegister(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()

	name, _ := cmd.Flags().GetString("name")
	card, _ := cmd.Flags().GetString("card")
	photoPath, _ := cmd.Flags().GetString("photo")

	photo, err := decodeImageFile(photoPath)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := service.NewRegistrar(st.directory, st.faces, newAnalyzer(cfg), nil)
	rec, err := reg.Register(ctx, service.RegisterRequest{CardID: card, Name: name, Photo: photo})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s for card %s\n", rec.Name, rec.CardID)
	return nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", path, err)
	}
	return img, nil
}
