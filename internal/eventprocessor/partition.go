// Eventsim - Streaming Event Similarity and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventsim

package eventprocessor

import (
	"hash/fnv"
	"math"
	"strconv"

	"github.com/tomtom215/eventsim/internal/models"
)

// PartitionForKey maps a string key to one of n partitions.
func PartitionForKey(key string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// ActionPartition partitions actions by event so all actions on one event
// share a subject.
func ActionPartition(a *models.Action, n int) int {
	return PartitionForKey(strconv.FormatInt(a.EventID, 10), n)
}

// SimilarityPartition partitions updates by their canonical pair key.
func SimilarityPartition(s models.Similarity, n int) int {
	return PartitionForKey(s.Key(), n)
}

// SimilarityMessageID identifies one emitted score for a pair. Replays of the
// same publish share it; a later score for the same pair does not.
func SimilarityMessageID(s models.Similarity) string {
	return s.Key() + "-" + strconv.FormatInt(s.Timestamp.UnixNano(), 10) + "-" +
		strconv.FormatUint(math.Float64bits(s.Score), 16)
}
