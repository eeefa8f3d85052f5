package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attend-server",
	Short: "Badge scan and face verification attendance server",
	Long: `attend-server answers badge readers on /api/rfid. Each scan is checked
against the authorized user list, verified against the camera, and written
to the attendance log; known badge holders are marked present after the
attendance period.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
