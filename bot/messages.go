package bot

const msgAdminWelcome = `🤖 *Welcome Admin!*

This is your control panel for the Multi-Channel Post Bot.

*Available Commands:*
/newpost - Create a new post
/editpost - Edit an existing post
/listposts - View all saved posts
/deletepost - Delete a post
/repost - Repost from saved posts

/addchannel - Add a channel/group
/listchannels - View all channels
/removechannel - Remove a channel

/help - Show this message`

const msgUserWelcome = `👋 *Welcome to the Bot!*

You can use me to search for posts.

*Available Commands:*
/search - Search for a post by name
/help - Show this message`

const msgNewPostPrompt = `📝 *Creating New Post*

Send me your post content with optional media (photo/video). You can use *Markdown* for formatting.

After that, send buttons in this format:
` + "`Button Text | URL`" + `
One button per line.

Send /done when finished.`

const (
	msgSearchPrompt   = "🔎 *What are you looking for?*\nSend me the name to search for."
	msgSearchResults  = "🔎 *Here are the search results:*"
	msgSearchNoMatch  = "😕 No results found for your query."
	msgChannelPrompt  = "📢 *Forward a message from the channel/group* or send the channel ID (e.g., -1001234567890)"
	msgNoChannels     = "📭 No channels added yet."
	msgNoChannelsRm   = "📭 No channels to remove."
	msgNoPosts        = "📭 No posts saved yet."
	msgNoPostsDelete  = "📭 No posts to delete."
	msgNoPostsRepost  = "📭 No posts to repost."
	msgNoPostsEdit    = "📭 No posts to edit."
	msgPostNotFound   = "❌ Post not found."
	msgContentSaved   = "✅ Content saved! Now send buttons (one per line) in `Text | URL` format, or /done to finish."
	msgNothingToDo    = "❌ No post creation or editing in progress."
	msgNothingCapture = "❌ Nothing to finish yet. Send the post content first."
	msgSavedOnly      = "✅ Post saved! Use /repost to publish later."
	msgChannelRemoved = "✅ Channel removed successfully!"
	msgPostDeleted    = "✅ Post deleted successfully!"
	msgNotAuthorized  = "⛔ You are not authorized to use this command."
)
