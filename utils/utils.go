package utils

import (
	"fmt"
	"log"
	"os"
	"time"
)

func FileExist(filePath string) bool {
	var err error

	if _, err = os.Stat(filePath); os.IsNotExist(err) {
		return false
	}

	if err != nil {
		log.Panic(err)
	}

	return true
}

func CreateDirIfNotExist(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return err
		}
	}

	return nil
}

// DirIsEmpty reports whether dir is missing or has no entries
func DirIsEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true
	}
	return len(entries) == 0
}

// TimeAgo renders how long ago t was, relative to now, in days/weeks/months
func TimeAgo(t, now time.Time) string {
	diffDays := int(now.Sub(t).Hours() / 24)

	switch {
	case diffDays <= 0:
		return "Today"
	case diffDays == 1:
		return "Yesterday"
	case diffDays < 7:
		return fmt.Sprintf("%v days ago", diffDays)
	case diffDays < 30:
		return fmt.Sprintf("%v weeks ago", diffDays/7)
	}
	return fmt.Sprintf("%v months ago", diffDays/30)
}
