package cache

import (
	"fmt"
	"strings"
)

type EntityType string

const (
	EntityBalance     EntityType = "balance"
	EntityCourseStats EntityType = "course_stats"
)

type KeyType string

const (
	KeyStudent KeyType = "student"
	KeyCourse  KeyType = "course"
)

// GenerateKey creates a standardized cache key
func GenerateKey(entity EntityType, keyType KeyType, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entity, keyType, value)
}

// ParseKey splits a key built by GenerateKey back into its components.
func ParseKey(key string) (EntityType, KeyType, string, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return EntityType(parts[0]), KeyType(parts[1]), parts[2], true
}
