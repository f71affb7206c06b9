package game

var (
	UpdateProximity = updateProximity
	ClosestInRange  = closestInRange
)
