package store

import "processguard/pkg/domain"

func versionOf(v uint32) domain.ProcessVersion {
	return domain.ProcessVersion(v)
}
