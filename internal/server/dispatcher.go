package server

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/perentalassist/hub/internal/hub"
	"github.com/perentalassist/hub/internal/observability"
	"github.com/perentalassist/hub/internal/protocol"
	"github.com/perentalassist/hub/internal/service"
)

var (
	errArgs = errors.New("bad arguments")
	errQuit = errors.New("quit")
)

type handlerFunc func(ctx context.Context, c *conn, args []string) error

// command describes one protocol verb. min is the required argument count;
// greedy commands keep the delimiter inside their final argument; stream
// commands always terminate with the END sentinel, errors included.
type command struct {
	min     int
	greedy  bool
	stream  bool
	errVerb string
	fn      handlerFunc
}

// Services bundles the collaborators the dispatcher routes commands to.
type Services struct {
	Accounts  service.AccountService
	Feed      service.FeedService
	Chat      service.ChatService
	Doctors   service.DoctorService
	Booking   service.BookingService
	Community service.CommunityService
}

// Dispatcher maps command verbs onto handler functions.
type Dispatcher struct {
	commands map[string]command
	svc      Services
	hub      *hub.Hub
	log      zerolog.Logger
}

// NewDispatcher builds the verb table.
func NewDispatcher(svc Services, h *hub.Hub, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		svc: svc,
		hub: h,
		log: logger.With().Str("component", "dispatcher").Logger(),
	}

	d.commands = map[string]command{
		"PING": {fn: d.handlePing},
		"QUIT": {fn: func(context.Context, *conn, []string) error { return errQuit }},

		"SIGNUP":      {min: 3, fn: d.handleSignup},
		"LOGIN":       {min: 2, fn: d.handleLogin},
		"AUTH":        {min: 1, fn: d.handleAuth},
		"USER_SEARCH": {min: 1, greedy: true, stream: true, fn: d.handleUserSearch},

		"POST_CREATE":    {min: 2, fn: d.handlePostCreate},
		"FETCH_POSTS":    {stream: true, fn: d.handleFetchPosts},
		"FEED_BY_USER":   {min: 1, stream: true, fn: d.handleFeedByUser},
		"POST_DEL":       {min: 2, fn: d.handlePostDelete},
		"COMMENT_CREATE": {min: 3, greedy: true, fn: d.handleCommentCreate},
		"FETCH_COMMENTS": {min: 1, stream: true, fn: d.handleFetchComments},
		"COMMENT_DEL":    {min: 2, fn: d.handleCommentDelete},
		"COMMENT_SUB":    {min: 1, fn: d.handleCommentSub},
		"COMMENT_UNSUB":  {min: 1, fn: d.handleCommentUnsub},

		"CHAT_OPEN":  {min: 2, fn: d.handleChatOpen},
		"MY_CONVS":   {min: 1, stream: true, fn: d.handleMyConvs},
		"CHAT_FETCH": {min: 2, stream: true, fn: d.handleChatFetch},
		"CHAT_SEND":  {min: 3, greedy: true, fn: d.handleChatSend},
		"CHAT_SUB":   {min: 1, fn: d.handleChatSub},
		"CHAT_UNSUB": {min: 1, fn: d.handleChatUnsub},

		"DOCTOR_LIST":         {stream: true, fn: d.handleDoctorList},
		"DOCTOR_GET":          {min: 1, stream: true, fn: d.handleDoctorGet},
		"DOCTOR_FIND_BY_USER": {min: 1, stream: true, fn: d.handleDoctorFindByUser},

		"APPT_SLOTS": {min: 2, stream: true, errVerb: "APPT_SLOTS", fn: d.handleApptSlots},
		"APPT_BOOK":  {min: 4, stream: true, errVerb: "APPT", fn: d.handleApptBook},
		"MY_APPTS":   {min: 1, stream: true, fn: d.handleMyAppts},

		"SESSIONS_UPCOMING": {stream: true, fn: d.handleSessionsUpcoming},
		"SESSION_REGISTER":  {min: 3, greedy: true, fn: d.handleSessionRegister},
		"TEACHER_LIST":      {stream: true, fn: d.handleTeacherList},
	}

	return d
}

// Dispatch runs one command line. The returned flag tells the read loop to
// stop after a terminating command. A failing command never ends the
// connection; the error is reported on the wire and the loop continues.
func (d *Dispatcher) Dispatch(ctx context.Context, c *conn, line string) bool {
	verb := line
	if i := strings.Index(line, protocol.Delim); i >= 0 {
		verb = line[:i]
	}

	cmd, ok := d.commands[verb]
	if !ok {
		c.writeLine(protocol.Join("ERR", "UNKNOWN", protocol.Sanitize(verb)))
		return false
	}

	observability.Commands().WithLabelValues(verb).Inc()

	var args []string
	if cmd.greedy {
		parts := strings.SplitN(line, protocol.Delim, cmd.min+1)
		args = parts[1:]
	} else if rest := strings.TrimPrefix(line, verb); rest != "" {
		args = strings.Split(strings.TrimPrefix(rest, protocol.Delim), protocol.Delim)
	}

	errVerb := cmd.errVerb
	if errVerb == "" {
		errVerb = verb
	}

	if len(args) < cmd.min {
		c.writeLine(protocol.Join("ERR", errVerb, "ARGS"))
		if cmd.stream {
			c.writeLine(protocol.End)
		}
		return false
	}

	err := cmd.fn(ctx, c, args)
	if errors.Is(err, errQuit) {
		c.writeLine("BYE")
		return true
	}
	if err != nil {
		c.writeLine(d.errorLine(errVerb, err))
	}
	if cmd.stream {
		c.writeLine(protocol.End)
	}
	return false
}

// errorLine maps an error onto the wire taxonomy: domain errors become
// machine-checkable sub-codes, anything unexpected becomes ERR|EX|<message>.
func (d *Dispatcher) errorLine(errVerb string, err error) string {
	var code string
	switch {
	case errors.Is(err, errArgs):
		code = "ARGS"
	case errors.Is(err, service.ErrNotFound):
		code = "NOT_FOUND"
	case errors.Is(err, service.ErrForbidden):
		code = "FORBIDDEN"
	case errors.Is(err, service.ErrInvalidCredentials):
		code = "INVALID"
	case errors.Is(err, service.ErrEmailTaken):
		code = "EXISTS"
	case errors.Is(err, service.ErrPastStart):
		code = "PAST"
	case errors.Is(err, service.ErrOutOfSchedule):
		code = "OUT_OF_SCHEDULE"
	case errors.Is(err, service.ErrSlotTaken):
		code = "ALREADY_BOOKED"
	case errors.Is(err, service.ErrEmptyMessage):
		code = "EMPTY"
	default:
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			code = "ARGS"
			break
		}
		d.log.Error().Err(err).Str("verb", errVerb).Msg("command failed")
		return protocol.Join("ERR", "EX", protocol.Sanitize(err.Error()))
	}
	return protocol.Join("ERR", errVerb, code)
}

func parseID(s string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, errArgs
	}
	return uint(v), nil
}

func formatID(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (d *Dispatcher) handlePing(ctx context.Context, c *conn, args []string) error {
	c.writeLine("PONG")
	return nil
}

func (d *Dispatcher) handleSignup(ctx context.Context, c *conn, args []string) error {
	user, err := d.svc.Accounts.Signup(ctx, service.SignupRequest{
		Email:    args[0],
		Password: args[1],
		Name:     args[2],
	})
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("SIGNUP_OK", formatID(user.ID)))
	return nil
}

func (d *Dispatcher) handleLogin(ctx context.Context, c *conn, args []string) error {
	user, err := d.svc.Accounts.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("LOGIN_OK", formatID(user.ID), protocol.Sanitize(user.DisplayName), user.Role))
	return nil
}

func (d *Dispatcher) handleAuth(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}
	// Presence is keyed by user id; 0 would acknowledge a registration the
	// hub never records.
	if userID == 0 {
		return errArgs
	}
	c.userID = userID
	d.hub.RegisterUser(userID, c)
	c.writeLine(protocol.Join("AUTH_OK", formatID(userID)))
	return nil
}

func (d *Dispatcher) handleUserSearch(ctx context.Context, c *conn, args []string) error {
	users, err := d.svc.Accounts.Search(ctx, args[0])
	if err != nil {
		return err
	}
	for _, u := range users {
		c.writeLine(protocol.Join("USER", formatID(u.ID), protocol.Sanitize(u.DisplayName), u.Email))
	}
	return nil
}

func (d *Dispatcher) handlePostCreate(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}

	imageURL := ""
	if len(args) > 2 {
		imageURL = args[2]
	}
	anonymous := len(args) > 3 && args[3] == "1"

	post, err := d.svc.Feed.CreatePost(ctx, userID, args[1], imageURL, anonymous)
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("POST_OK", formatID(post.ID)))
	return nil
}

func (d *Dispatcher) handleFetchPosts(ctx context.Context, c *conn, args []string) error {
	rows, err := d.svc.Feed.ListPosts(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		c.writeLine(protocol.Join("POST", formatID(row.ID), protocol.Sanitize(row.Author), row.Content, row.ImageURL, protocol.FormatTimestamp(row.CreatedAt)))
	}
	return nil
}

func (d *Dispatcher) handleFeedByUser(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}
	rows, err := d.svc.Feed.ListPostsByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		c.writeLine(protocol.Join("POST", formatID(row.ID), protocol.Sanitize(row.Author), row.Content, row.ImageURL, protocol.FormatTimestamp(row.CreatedAt)))
	}
	return nil
}

func (d *Dispatcher) handlePostDelete(ctx context.Context, c *conn, args []string) error {
	postID, err := parseID(args[0])
	if err != nil {
		return err
	}
	userID, err := parseID(args[1])
	if err != nil {
		return err
	}
	if err := d.svc.Feed.DeletePost(ctx, postID, userID); err != nil {
		return err
	}
	c.writeLine("POST_DEL_OK")
	return nil
}

func (d *Dispatcher) handleCommentCreate(ctx context.Context, c *conn, args []string) error {
	postID, err := parseID(args[0])
	if err != nil {
		return err
	}
	userID, err := parseID(args[1])
	if err != nil {
		return err
	}
	comment, err := d.svc.Feed.CreateComment(ctx, postID, userID, args[2])
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("COMMENT_OK", formatID(comment.ID)))
	return nil
}

func (d *Dispatcher) handleFetchComments(ctx context.Context, c *conn, args []string) error {
	postID, err := parseID(args[0])
	if err != nil {
		return err
	}
	rows, err := d.svc.Feed.ListComments(ctx, postID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		c.writeLine(protocol.Join("COMMENT", formatID(row.ID), protocol.Sanitize(row.Author), row.Content, protocol.FormatTimestamp(row.CreatedAt)))
	}
	return nil
}

func (d *Dispatcher) handleCommentDelete(ctx context.Context, c *conn, args []string) error {
	commentID, err := parseID(args[0])
	if err != nil {
		return err
	}
	userID, err := parseID(args[1])
	if err != nil {
		return err
	}
	if err := d.svc.Feed.DeleteComment(ctx, commentID, userID); err != nil {
		return err
	}
	c.writeLine("COMMENT_DEL_OK")
	return nil
}

func (d *Dispatcher) handleCommentSub(ctx context.Context, c *conn, args []string) error {
	postID, err := parseID(args[0])
	if err != nil {
		return err
	}
	d.hub.SubscribeComments(postID, c)
	c.writeLine(protocol.Join("SUB_OK", formatID(postID)))
	return nil
}

func (d *Dispatcher) handleCommentUnsub(ctx context.Context, c *conn, args []string) error {
	postID, err := parseID(args[0])
	if err != nil {
		return err
	}
	d.hub.UnsubscribeComments(postID, c)
	c.writeLine(protocol.Join("UNSUB_OK", formatID(postID)))
	return nil
}

func (d *Dispatcher) handleChatOpen(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}
	otherID, err := parseID(args[1])
	if err != nil {
		return err
	}
	conv, err := d.svc.Chat.OpenConversation(ctx, userID, otherID)
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("CHAT_OK", formatID(conv.ID)))
	return nil
}

func (d *Dispatcher) handleMyConvs(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}
	summaries, err := d.svc.Chat.ListConversations(ctx, userID)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		c.writeLine(protocol.Join("CONV", formatID(s.ID), protocol.Sanitize(s.Title)))
	}
	return nil
}

func (d *Dispatcher) handleChatFetch(ctx context.Context, c *conn, args []string) error {
	convID, err := parseID(args[0])
	if err != nil {
		return err
	}
	afterID, err := parseID(args[1])
	if err != nil {
		return err
	}
	messages, err := d.svc.Chat.FetchAfter(ctx, convID, afterID)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		c.writeLine(service.MessageLine(msg))
	}
	return nil
}

func (d *Dispatcher) handleChatSend(ctx context.Context, c *conn, args []string) error {
	convID, err := parseID(args[0])
	if err != nil {
		return err
	}
	senderID, err := parseID(args[1])
	if err != nil {
		return err
	}
	msg, err := d.svc.Chat.Send(ctx, convID, senderID, args[2])
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("SEND_OK", formatID(msg.ID)))
	return nil
}

func (d *Dispatcher) handleChatSub(ctx context.Context, c *conn, args []string) error {
	convID, err := parseID(args[0])
	if err != nil {
		return err
	}
	d.hub.SubscribeChat(convID, c)
	c.writeLine(protocol.Join("SUB_OK", formatID(convID)))
	return nil
}

func (d *Dispatcher) handleChatUnsub(ctx context.Context, c *conn, args []string) error {
	convID, err := parseID(args[0])
	if err != nil {
		return err
	}
	d.hub.UnsubscribeChat(convID, c)
	c.writeLine(protocol.Join("UNSUB_OK", formatID(convID)))
	return nil
}

func (d *Dispatcher) handleDoctorList(ctx context.Context, c *conn, args []string) error {
	doctors, err := d.svc.Doctors.List(ctx)
	if err != nil {
		return err
	}
	for _, doc := range doctors {
		c.writeLine(protocol.Join("DOCTOR", formatID(doc.ID), protocol.Sanitize(doc.Name), protocol.Sanitize(doc.Specialty), protocol.Sanitize(doc.Bio), doc.PhotoURL, formatID(doc.UserID)))
	}
	return nil
}

func (d *Dispatcher) handleDoctorGet(ctx context.Context, c *conn, args []string) error {
	doctorID, err := parseID(args[0])
	if err != nil {
		return err
	}
	profile, err := d.svc.Doctors.Profile(ctx, doctorID)
	if err != nil {
		return err
	}

	doc := profile.Doctor
	c.writeLine(protocol.Join("DOCTOR", formatID(doc.ID), protocol.Sanitize(doc.Name), protocol.Sanitize(doc.Specialty), protocol.Sanitize(doc.Bio), doc.PhotoURL, formatID(doc.UserID)))
	for _, w := range profile.Windows {
		c.writeLine(protocol.Join("SCHED", strconv.Itoa(w.DayOfWeek), w.StartTime, w.EndTime))
	}
	return nil
}

func (d *Dispatcher) handleDoctorFindByUser(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}
	doctor, err := d.svc.Doctors.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("DOCTOR_ID", formatID(doctor.ID)))
	return nil
}

func (d *Dispatcher) handleApptSlots(ctx context.Context, c *conn, args []string) error {
	doctorID, err := parseID(args[0])
	if err != nil {
		return err
	}
	date, err := protocol.ParseDate(args[1])
	if err != nil {
		return errArgs
	}
	slots, err := d.svc.Booking.Slots(ctx, doctorID, date)
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("SLOTS", strings.Join(slots, ",")))
	return nil
}

func (d *Dispatcher) handleApptBook(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}
	doctorID, err := parseID(args[1])
	if err != nil {
		return err
	}
	start, err := protocol.ParseDateTime(args[2])
	if err != nil {
		return errArgs
	}
	end, err := protocol.ParseDateTime(args[3])
	if err != nil {
		return errArgs
	}

	appt, err := d.svc.Booking.Book(ctx, userID, doctorID, start, end)
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("APPT_OK", formatID(appt.ID), appt.VideoURL))
	return nil
}

func (d *Dispatcher) handleMyAppts(ctx context.Context, c *conn, args []string) error {
	userID, err := parseID(args[0])
	if err != nil {
		return err
	}
	rows, err := d.svc.Booking.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		c.writeLine(protocol.Join(
			"APPT",
			formatID(row.ID),
			protocol.Sanitize(row.DoctorName),
			protocol.FormatDateTime(row.StartAt),
			protocol.FormatDateTime(row.EndAt),
			row.VideoURL,
		))
	}
	return nil
}

func (d *Dispatcher) handleSessionsUpcoming(ctx context.Context, c *conn, args []string) error {
	sessions, err := d.svc.Community.UpcomingSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		c.writeLine(protocol.Join(
			"SESSION",
			formatID(s.ID),
			protocol.Sanitize(s.Name),
			s.Date.Format(protocol.DateLayout),
			s.StartTime,
			s.EndTime,
			protocol.Sanitize(s.Location),
		))
	}
	return nil
}

func (d *Dispatcher) handleSessionRegister(ctx context.Context, c *conn, args []string) error {
	sessionID, err := parseID(args[0])
	if err != nil {
		return err
	}
	userID, err := parseID(args[1])
	if err != nil {
		return err
	}
	reg, err := d.svc.Community.RegisterSession(ctx, sessionID, userID, args[2])
	if err != nil {
		return err
	}
	c.writeLine(protocol.Join("REG_OK", formatID(reg.ID)))
	return nil
}

func (d *Dispatcher) handleTeacherList(ctx context.Context, c *conn, args []string) error {
	teachers, err := d.svc.Community.Teachers(ctx)
	if err != nil {
		return err
	}
	for _, t := range teachers {
		c.writeLine(protocol.Join("TEACHER", formatID(t.ID), protocol.Sanitize(t.Name), protocol.Sanitize(t.Subject), protocol.Sanitize(t.School)))
	}
	return nil
}
