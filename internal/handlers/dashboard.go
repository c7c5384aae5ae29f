package handlers

import (
	"bytes"
	"fmt"
	"html/template"

	"unity-upload-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html><head><title>Dashboard</title></head>
<body style="font-family:sans-serif; padding:20px; background:#f4f4f4;">
<h1>Unity Upload Server Dashboard</h1>
<p>Total Maps: <b>{{.Maps}}</b></p>
<p>Disk Usage: <b>{{.UsedMB}} MB</b> / {{.QuotaMB}} MB ({{.UsedPercent}}%)</p>
<p>Active Bans: <b>{{len .Bans}}</b></p>
<p>Voice Log Entries: <b>{{.VoiceEntries}}</b></p>
<h3>Active Bans</h3>
<table border="1" cellpadding="6">
<tr><th>Player</th><th>Reason</th><th>Expires</th></tr>
{{range .Bans}}<tr><td>{{.PlayerID}}</td><td>{{.Reason}}</td><td>{{.ExpiresAt.Format "2006-01-02 15:04 MST"}}</td></tr>
{{else}}<tr><td colspan="3">No active bans.</td></tr>
{{end}}</table>
<h3>Recent Voice Logs</h3>
<ul>{{range .RecentVoice}}<li>{{.}}</li>{{else}}<li>No logs yet.</li>{{end}}</ul>
{{if .PlayFab}}<form method="POST" action="/api/playfab/unban">
<label>PlayFab ID: <input type="text" name="playfabId" required></label>
<button type="submit">Unban on PlayFab</button>
</form>{{end}}
<h3>Quick Links</h3>
<ul>
<li><a href="/api/uploads">Uploaded Maps</a></li>
<li><a href="/api/voice-log">Voice Ban Logs</a></li>
<li><a href="/api/reports">Player Reports</a></li>
<li><a href="/api/bans">Ban List (JSON)</a></li>
</ul>
</body></html>`))

type dashboardView struct {
	Maps         int
	UsedMB       string
	QuotaMB      string
	UsedPercent  string
	Bans         []models.BanRecord
	VoiceEntries int
	RecentVoice  []string
	PlayFab      bool
}

func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	usage, err := h.Uploads.Usage()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	voice, err := h.VoiceLog.Lines()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}

	recent := make([]string, 0, 5)
	for i := len(voice) - 1; i >= 0 && len(recent) < 5; i-- {
		recent = append(recent, voice[i])
	}

	view := dashboardView{
		Maps:         usage.Files,
		UsedMB:       fmt.Sprintf("%.2f", float64(usage.UsedBytes)/(1<<20)),
		QuotaMB:      fmt.Sprintf("%d", usage.QuotaBytes>>20),
		UsedPercent:  fmt.Sprintf("%.1f", usage.UsedPercent),
		Bans:         h.Bans.ListActive(),
		VoiceEntries: len(voice),
		RecentVoice:  recent,
		PlayFab:      h.PlayFab != nil,
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
