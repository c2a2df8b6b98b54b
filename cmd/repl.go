package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"hanteikun/internal/logger"
)

// replUserID keys the single local conversation.
const replUserID = "repl"

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Chat with the judge locally without a LINE channel",
	Run: func(_ *cobra.Command, _ []string) {
		repl()
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func repl() {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	j, err := buildJudge(ctx, config, zlog)
	if err != nil {
		zlog.Fatal("building the judge", zap.Error(err))
	}

	fmt.Println("ブラック求人判定君 (ローカルモード) — 求人票を貼り付けてください。Ctrl+C で終了。")

	prompt := promptui.Prompt{Label: "求人票"}

	for {
		input, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			zlog.Fatal("reading input", zap.Error(err))
		}

		if input == "" {
			continue
		}

		reply := j.Handle(ctx, replUserID, input)
		fmt.Println()
		fmt.Println(reply.Text)
		fmt.Println()
	}
}
