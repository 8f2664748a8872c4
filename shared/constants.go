package shared

const (
	DEFAULT_ADDR = "127.0.0.1:7478"

	ROUTE_MEDIA_INFO  = "/media_info"
	ROUTE_MEDIA_IMAGE = "/media_image"
	ROUTE_EVENTS      = "/events"

	STREAM_PLAYBACK = "playback"

	USER_AGENT = "nowplaying/1.0 <github.com/marcus-crane/nowplaying>"
)
