package domain

// Surface is a navigational area of the client application.
type Surface string

const (
	SurfaceTasks    Surface = "tasks"
	SurfaceAdmin    Surface = "admin"
	SurfaceProgress Surface = "progress"
	SurfaceInvites  Surface = "invites"
	SurfaceProfile  Surface = "profile"
)

// SurfacesForRole is the pure function from role to visible surfaces. It is
// re-evaluated on every role read so out-of-band role changes take effect
// without a relaunch. A role the function does not know about gets nothing.
func SurfacesForRole(role Role) []Surface {
	switch role {
	case RoleAdmin:
		return []Surface{SurfaceTasks, SurfaceAdmin, SurfaceProgress, SurfaceInvites, SurfaceProfile}
	case RoleWorker:
		return []Surface{SurfaceTasks, SurfaceProgress, SurfaceProfile}
	default:
		return nil
	}
}
