package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteRegister is the registration route.
	RouteRegister = "/register"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RoutePostID is the post detail route pattern.
	RoutePostID = "/post/{id}"
	// RouteNewPost is the post creation route.
	RouteNewPost = "/new-post"
	// RouteEditPostID is the post edit route pattern.
	RouteEditPostID = "/edit-post/{id}"
	// RouteDeleteID is the post delete route pattern.
	RouteDeleteID = "/delete/{id}"
	// RouteAbout is the about page route.
	RouteAbout = "/about"
	// RouteContact is the contact page route.
	RouteContact = "/contact"
	// RouteHealth is the health check route.
	RouteHealth = "/health"
)

const (
	redirectRoot  = RouteRoot
	redirectLogin = RouteLogin

	redirectPostID = "/post/%d"
)
