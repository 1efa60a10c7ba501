package service

import (
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"tealchat/model"

	"github.com/jordan-wright/email"
)

const defaultRetentionDays = 30

// PurgeStaleAnonymous deletes anonymous conversations idle for more than
// the given number of days, messages included. Registered users' history
// is never swept.
func PurgeStaleAnonymous(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	ids, err := model.StaleAnonymousConversations(cutoff)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, id := range ids {
		if err := model.DeleteConversation(id); err != nil {
			logger.Warnf("[%s] purge conversation %s error, %s", "scheduled task", id, err)
			continue
		}
		purged++
	}
	return purged, nil
}

// RetentionSweepTask is the cron entry point for the nightly sweep.
func RetentionSweepTask() {
	logger.Infof("[%s] Start scheduled task RetentionSweepTask", "scheduled task")

	days := defaultRetentionDays
	if v := os.Getenv("RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	purged, err := PurgeStaleAnonymous(days)
	if err != nil {
		logger.Warnf("[%s] retention sweep error, %s", "scheduled task", err)
		return
	}

	logger.Infof("[%s] Finished scheduled task RetentionSweepTask, purged %d conversations", "scheduled task", purged)
	if purged > 0 {
		sendRetentionReport(purged, days)
	}
}

// sendRetentionReport mails a sweep summary to the operator address. A
// missing SMTP configuration just skips the mail.
func sendRetentionReport(purged int, days int) {
	host := os.Getenv("SMTP_HOST")
	admin := os.Getenv("ADMIN_EMAIL")
	if host == "" || admin == "" {
		return
	}

	e := email.NewEmail()
	e.From = os.Getenv("SMTP_FROM")
	e.To = []string{admin}
	e.Subject = "tealchat retention sweep"
	e.Text = []byte(fmt.Sprintf("Purged %d anonymous conversations idle for more than %d days.", purged, days))

	addr := host + ":" + os.Getenv("SMTP_PORT")
	auth := smtp.PlainAuth("", os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"), host)
	if err := e.Send(addr, auth); err != nil {
		logger.Warnf("[%s] send retention report error, %s", "scheduled task", err)
	}
}
