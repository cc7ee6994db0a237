package repository

import "github.com/lib/pq"

// int64Array adapts an ID slice for ANY($n) parameters.
func int64Array(ids []int64) pq.Int64Array {
	return pq.Int64Array(ids)
}
