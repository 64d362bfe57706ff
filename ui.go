package main

import (
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"UserManagerService/config"
	"UserManagerService/controller"
	"UserManagerService/service"
	"UserManagerService/style"
	"UserManagerService/validation"
	"UserManagerService/views"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the terminal client",
	Long: `Open the terminal client for the gateway at API_URL.

Keys:
  a          add a user
  e, enter   edit the selected user
  d          delete the selected user
  r          reload
  q          quit

The client logs to LOG_FILE so the screen stays clean.

Examples:
  usermanager ui
  usermanager ui --api-url http://gateway.internal:3001`,
	RunE: runUI,
}

var uiAPIURL string

func init() {
	rootCmd.AddCommand(uiCmd)

	uiCmd.Flags().StringVar(&uiAPIURL, "api-url", "", "Gateway base URL (overrides API_URL)")
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(c *config.Config) {
		if cmd.Flags().Changed("api-url") {
			c.APIURL = uiAPIURL
		}
	})
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	svc := service.NewUserService(cfg.BaseURL(),
		service.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		service.WithLogger(log),
	)
	schema := validation.Users()
	ctrl := controller.New(svc, schema, controller.WithLogger(log))

	log.WithFields(logrus.Fields{"api": cfg.BaseURL()}).Info("starting client")
	p := tea.NewProgram(views.NewApp(cmd.Context(), ctrl, schema), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		fmt.Println(style.ErrorPrefix + " " + err.Error())
		return err
	}
	return nil
}
