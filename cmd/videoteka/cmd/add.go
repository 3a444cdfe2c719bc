package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/videoteka/videoteka/internal/api/controllers"
)

var (
	addServer  string
	addQuality string
	addFormat  string
	addAudio   string
	addSubs    bool
	addSubLang string
	addDestDir string
)

var addCmd = &cobra.Command{
	Use:   "add [urls...]",
	Short: "Queue downloads on a running daemon",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addServer, "server", "http://localhost:8090", "daemon base URL")
	addCmd.Flags().StringVar(&addQuality, "quality", "", "video quality (best, 1080p, 720p, 480p, audio)")
	addCmd.Flags().StringVar(&addFormat, "format", "", "container format (mp4, webm, mkv)")
	addCmd.Flags().StringVar(&addAudio, "audio-quality", "", "audio quality (best, 192k, 128k)")
	addCmd.Flags().BoolVar(&addSubs, "subs", false, "download subtitles")
	addCmd.Flags().StringVar(&addSubLang, "sub-lang", "", "subtitle language code")
	addCmd.Flags().StringVar(&addDestDir, "dest", "", "destination directory override")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	req := controllers.AddJobsRequest{
		URLs:         args,
		Quality:      addQuality,
		Format:       addFormat,
		AudioQuality: addAudio,
		SubtitleLang: addSubLang,
		DestDir:      addDestDir,
	}
	if cmd.Flags().Changed("subs") {
		req.Subtitles = &addSubs
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(addServer+"/api/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("is the daemon running? %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		var apiErr controllers.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon rejected request: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon rejected request: %s", resp.Status)
	}

	var out controllers.AddJobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	for _, id := range out.IDs {
		fmt.Println(id)
	}
	return nil
}
