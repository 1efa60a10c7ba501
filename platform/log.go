package platform

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the shared application logger. It writes to stderr until
// InitAppLogger attaches a daily log file.
var Logger = logrus.New()

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	b.WriteString(fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message))
	return b.Bytes(), nil
}

// InitAppLogger routes Logger output to a dated file under logPath in
// addition to stderr.
func InitAppLogger(logPath string, fileName string) {
	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		Logger.Errorf("create log dir: %v", err)
		return
	}

	timer := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s/%s-%s.log", logPath, timer, fileName)
	logFile, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		Logger.Errorf("open log file: %v", err)
		return
	}
	Logger.SetFormatter(&LogFormatter{})
	Logger.SetOutput(io.MultiWriter(logFile, os.Stderr))
}
