package history

import "fmt"

func VersionComment(version int) string {
	return fmt.Sprintf("Version %d", version)
}

func PublishedComment(version int) string {
	return fmt.Sprintf("Published version %d", version)
}

func RestoredComment(from int) string {
	return fmt.Sprintf("Restored from version %d", from)
}
