package journeytrace

import "github.com/vincentbai/journeytrace/internal/models"

// Empty details and identifiers are left out of the recorded event.

func (c *Client) feature(action, name, details string) error {
	event := models.NewEvent(
		models.KeyCategory, "Feature",
		models.KeyAction, action,
		models.KeyName, name,
	)
	if details != "" {
		event.Set(models.KeyDetails, details)
	}
	return c.add(event)
}

func (c *Client) FeatureAttempted(name, details string) error {
	return c.feature("Attempted", name, details)
}

func (c *Client) FeatureCompleted(name, details string) error {
	return c.feature("Completed", name, details)
}

func (c *Client) FeatureFailed(name, details string) error {
	return c.feature("Failed", name, details)
}

func (c *Client) content(action, contentType, identifier, details string) error {
	event := models.NewEvent(
		models.KeyCategory, "Content",
		models.KeyAction, action,
		models.KeyType, contentType,
	)
	if identifier != "" {
		event.Set(models.KeyIdentifier, identifier)
	}
	if details != "" {
		event.Set(models.KeyDetails, details)
	}
	return c.add(event)
}

func (c *Client) ContentViewed(contentType, identifier string) error {
	return c.content("Viewed", contentType, identifier, "")
}

func (c *Client) ContentEdited(contentType, identifier, details string) error {
	return c.content("Edited", contentType, identifier, details)
}

func (c *Client) ContentCreated(contentType, identifier string) error {
	return c.content("Created", contentType, identifier, "")
}

func (c *Client) ContentDeleted(contentType, identifier string) error {
	return c.content("Deleted", contentType, identifier, "")
}

func (c *Client) ContentRequested(contentType, identifier string) error {
	return c.content("Requested", contentType, identifier, "")
}

func (c *Client) ContentSearched(contentType string) error {
	return c.content("Searched", contentType, "", "")
}

// Milestone records a custom milestone. Two adjacent milestones with the
// same category, operation, name and details are counted as one.
func (c *Client) Milestone(category, operation, name, details string) error {
	return c.add(models.NewEvent(
		models.KeyCategory, category,
		models.KeyAction, operation,
		models.KeyName, name,
		models.KeyDetails, details,
	))
}
