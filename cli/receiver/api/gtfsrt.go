package api

import (
	"sort"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/daniil11ru/livefleet/cli/receiver/types"
	"google.golang.org/protobuf/proto"
)

// buildFeed снимок в виде GTFS-Realtime VehiclePositions
func buildFeed(records []types.PositionRecord, at time.Time) *gtfs.FeedMessage {
	sort.Slice(records, func(i, j int) bool { return records[i].VehicleID < records[j].VehicleID })

	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(at.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(records)),
	}

	for _, rec := range records {
		id := string(rec.VehicleID)
		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id: proto.String(id),
			Vehicle: &gtfs.VehiclePosition{
				Vehicle: &gtfs.VehicleDescriptor{Id: proto.String(id)},
				Position: &gtfs.Position{
					Latitude:  proto.Float32(float32(rec.Latitude)),
					Longitude: proto.Float32(float32(rec.Longitude)),
				},
				Timestamp: proto.Uint64(uint64(rec.ObservedAt.Unix())),
			},
		})
	}

	return feed
}
