package users

import (
	"hash/fnv"
	"net/url"
	"strings"
)

var avatarPalette = []string{
	"3b82f6", "10b981", "f59e0b", "ef4444",
	"8b5cf6", "06b6d4", "ec4899", "84cc16",
}

// AvatarURL builds a ui-avatars.com initials image. The background colour is
// picked from a fixed palette by name, so a user keeps the same colour.
func AvatarURL(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = "?"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	bg := avatarPalette[h.Sum32()%uint32(len(avatarPalette))]

	q := url.Values{}
	q.Set("name", name)
	q.Set("background", bg)
	q.Set("color", "fff")
	return "https://ui-avatars.com/api/?" + q.Encode()
}
