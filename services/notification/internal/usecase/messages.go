package usecase

import "fmt"

type template struct {
	title  string
	render func(task map[string]interface{}) string
}

func field(task map[string]interface{}, key string) string {
	value, _ := task[key].(string)
	return value
}

var templates = map[string]template{
	"release_submitted": {"Release sent to moderation", func(t map[string]interface{}) string {
		return fmt.Sprintf("%q is waiting for a moderator", field(t, "title"))
	}},
	"release_approved": {"Release approved", func(t map[string]interface{}) string {
		return fmt.Sprintf("%q passed moderation", field(t, "title"))
	}},
	"release_rejected": {"Release rejected", func(t map[string]interface{}) string {
		if reason := field(t, "reason"); reason != "" {
			return fmt.Sprintf("%q was rejected: %s", field(t, "title"), reason)
		}
		return fmt.Sprintf("%q was rejected", field(t, "title"))
	}},
	"release_withdrawn": {"Release withdrawn", func(t map[string]interface{}) string {
		return fmt.Sprintf("%q was taken back to drafts", field(t, "title"))
	}},
	"release_deleted": {"Release moved to trash", func(t map[string]interface{}) string {
		return fmt.Sprintf("%q can be restored from the trash", field(t, "title"))
	}},
	"release_restored": {"Release restored", func(t map[string]interface{}) string {
		return fmt.Sprintf("%q is back as %s", field(t, "title"), field(t, "status"))
	}},
	"release_purged": {"Release deleted", func(t map[string]interface{}) string {
		return fmt.Sprintf("%q was permanently deleted", field(t, "title"))
	}},
	"ticket_answered": {"Support replied", func(t map[string]interface{}) string {
		return fmt.Sprintf("Your ticket %q has an answer", field(t, "subject"))
	}},
	"ticket_closed": {"Ticket closed", func(t map[string]interface{}) string {
		return fmt.Sprintf("Your ticket %q was closed", field(t, "subject"))
	}},
}
