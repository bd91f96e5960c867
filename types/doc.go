// Package types provides the core domain types used across swarmchat.
// This package has ZERO dependencies on other swarmchat packages to avoid
// circular imports. All other packages should import types from here.
package types
